// Package clients 包含调用外部服务与本地工具链的客户端门面（Façade）。
// 实现 Service 层定义的协作者接口，封装 HTTP/命令行调用细节。
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// MediaToolchain 基于本地 ffmpeg/ffprobe 实现媒体探测、缩略图、转码与画幅重制。
type MediaToolchain struct {
	ffmpegPath     string
	ffprobePath    string
	thumbnailCount int
	storage        services.Storage
	log            *log.Helper
}

// NewMediaToolchain 构造 MediaToolchain。
func NewMediaToolchain(cfg configloader.ToolsConfig, storage services.Storage, logger log.Logger) (*MediaToolchain, error) {
	if storage == nil {
		return nil, errors.New("media toolchain: storage is required")
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := cfg.FFprobePath
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	count := cfg.ThumbnailCount
	if count <= 0 {
		count = 3
	}
	return &MediaToolchain{
		ffmpegPath:     ffmpeg,
		ffprobePath:    ffprobe,
		thumbnailCount: count,
		storage:        storage,
		log:            log.NewHelper(logger),
	}, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int32  `json:"width"`
		Height    int32  `json:"height"`
	} `json:"streams"`
}

// Probe 调用 ffprobe 提取时长与分辨率。
func (t *MediaToolchain) Probe(ctx context.Context, localPath string) (*services.ProbeResult, error) {
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		localPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("ffprobe: parse output: %w", err)
	}

	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: parse duration %q: %w", out.Format.Duration, err)
	}

	result := &services.ProbeResult{DurationMicros: int64(seconds * 1e6)}
	for _, stream := range out.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}
	if result.Width == 0 || result.Height == 0 {
		return nil, errors.New("ffprobe: no video stream found")
	}
	return result, nil
}

// Generate 在时长内均匀取帧生成缩略图并上传，返回对象地址列表。
func (t *MediaToolchain) Generate(ctx context.Context, localPath string, videoID uuid.UUID) ([]string, error) {
	probe, err := t.Probe(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("thumbnails: probe source: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "thumbs-"+videoID.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("thumbnails: create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	durationSec := float64(probe.DurationMicros) / 1e6
	urls := make([]string, 0, t.thumbnailCount)
	for i := 0; i < t.thumbnailCount; i++ {
		// 取样点避开首尾黑帧
		offset := durationSec * (float64(i) + 0.5) / float64(t.thumbnailCount)
		framePath := filepath.Join(tmpDir, fmt.Sprintf("thumb_%d.jpg", i))

		cmd := exec.CommandContext(ctx, t.ffmpegPath,
			"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
			"-i", localPath,
			"-frames:v", "1",
			"-q:v", "3",
			"-y", framePath,
		)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("thumbnails: extract frame %d: %w: %s", i, err, stderr.String())
		}

		objectName := fmt.Sprintf("thumbnails/%s/thumb_%d.jpg", videoID, i)
		url, _, err := t.storage.Upload(ctx, framePath, objectName)
		if err != nil {
			return nil, fmt.Errorf("thumbnails: upload frame %d: %w", i, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Transcode 下载源文件，按平台规格转码后上传产物。
func (t *MediaToolchain) Transcode(ctx context.Context, job services.TranscodeJob) (*services.TranscodeOutput, error) {
	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("transcode-%s-%s-", job.VideoID, job.Platform))
	if err != nil {
		return nil, fmt.Errorf("transcode: create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	sourcePath := filepath.Join(tmpDir, "source"+filepath.Ext(job.FileURL))
	if err := t.storage.Download(ctx, job.FileURL, sourcePath); err != nil {
		return nil, fmt.Errorf("transcode: download source: %w", err)
	}

	outputPath := filepath.Join(tmpDir, "output.mp4")
	if err := t.runScale(ctx, sourcePath, outputPath, job.Spec.Width, job.Spec.Height, job.Spec.BitrateKbps); err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("transcoded_videos/%s/%s.mp4", job.VideoID, job.Platform)
	if _, _, err := t.storage.Upload(ctx, outputPath, objectName); err != nil {
		return nil, fmt.Errorf("transcode: upload output: %w", err)
	}

	return &services.TranscodeOutput{
		OutputObject: objectName,
		Width:        job.Spec.Width,
		Height:       job.Spec.Height,
		BitrateKbps:  job.Spec.BitrateKbps,
	}, nil
}

// Resize 在本地把视频重制为目标尺寸，居中裁剪后缩放。
func (t *MediaToolchain) Resize(ctx context.Context, job services.ResizeJob) error {
	return t.runScale(ctx, job.SourcePath, job.OutputPath, job.Width, job.Height, 0)
}

// runScale 执行一次 ffmpeg 缩放。裁剪保持目标宽高比,避免变形。
func (t *MediaToolchain) runScale(ctx context.Context, sourcePath, outputPath string, width, height, bitrateKbps int32) error {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		width, height, width, height,
	)
	args := []string{
		"-i", sourcePath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-c:a", "aac",
	}
	if bitrateKbps > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrateKbps))
	}
	args = append(args, "-movflags", "+faststart", "-y", outputPath)

	started := time.Now()
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg scale %dx%d: %w: %s", width, height, err, stderr.String())
	}
	t.log.WithContext(ctx).Debugf("ffmpeg scale done: target=%dx%d elapsed=%s", width, height, time.Since(started))
	return nil
}
