package gcs_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	gcs "github.com/bionicotaku/lingo-services-media/internal/infrastructure/gcs"
	"github.com/go-kratos/kratos/v2/log"
)

func newTestSigner(t *testing.T, clock func() time.Time) *gcs.ResumableSigner {
	t.Helper()
	keyPEM, accessID := generateTestKey(t)
	signer, err := gcs.NewResumableSigner(context.Background(), accessID, log.NewStdLogger(io.Discard),
		gcs.WithServiceAccountKey(accessID, keyPEM),
		gcs.WithClock(clock),
	)
	if err != nil {
		t.Fatalf("NewResumableSigner: %v", err)
	}
	return signer
}

func TestSignedResumableInitURL(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	signer := newTestSigner(t, func() time.Time { return fixed })

	ttl := 10 * time.Minute
	signedURL, expires, err := signer.SignedResumableInitURL(ctx, "my-bucket", "raw_videos/user/video.mp4", "video/mp4", ttl)
	if err != nil {
		t.Fatalf("SignedResumableInitURL: %v", err)
	}
	if !expires.Equal(fixed.Add(ttl)) {
		t.Fatalf("expected expires %v, got %v", fixed.Add(ttl), expires)
	}

	parsed, err := url.Parse(signedURL)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	if parsed.Host == "" {
		t.Fatal("expected host in signed url")
	}
	if !strings.Contains(parsed.Path, "raw_videos/user/video.mp4") {
		t.Fatalf("expected object path in signed url, got %s", parsed.Path)
	}

	query := parsed.Query()
	if query.Get("X-Goog-Expires") == "" {
		t.Fatal("missing TTL in signed url")
	}
	headers := strings.ToLower(query.Get("X-Goog-SignedHeaders"))
	if !strings.Contains(headers, "x-goog-resumable") {
		t.Fatalf("signed headers missing resumable flag: %s", headers)
	}
	if !strings.Contains(headers, "x-goog-if-generation-match") {
		t.Fatalf("signed headers missing generation match: %s", headers)
	}
	if !strings.Contains(headers, "x-upload-content-type") {
		t.Fatalf("signed headers missing upload content type: %s", headers)
	}
}

func TestSignedResumableInitURL_OmitsContentTypeHeaderWhenEmpty(t *testing.T) {
	signer := newTestSigner(t, time.Now)

	signedURL, _, err := signer.SignedResumableInitURL(context.Background(), "my-bucket", "raw_videos/user/video.mp4", "", time.Minute)
	if err != nil {
		t.Fatalf("SignedResumableInitURL: %v", err)
	}
	parsed, err := url.Parse(signedURL)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	headers := strings.ToLower(parsed.Query().Get("X-Goog-SignedHeaders"))
	if strings.Contains(headers, "x-upload-content-type") {
		t.Fatalf("unexpected content type header without content type: %s", headers)
	}
}

func TestSignedResumableInitURL_Validation(t *testing.T) {
	signer := newTestSigner(t, time.Now)
	ctx := context.Background()

	if _, _, err := signer.SignedResumableInitURL(ctx, "", "object", "video/mp4", time.Minute); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, _, err := signer.SignedResumableInitURL(ctx, "bucket", "", "video/mp4", time.Minute); err == nil {
		t.Fatal("expected error for empty object name")
	}
	if _, _, err := signer.SignedResumableInitURL(ctx, "bucket", "object", "video/mp4", 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}

	badObjects := []string{
		"/raw_videos/user/video.mp4",
		"raw_videos/../secrets",
		"raw_videos//video.mp4",
		"raw_videos/./video.mp4",
	}
	for _, object := range badObjects {
		if _, _, err := signer.SignedResumableInitURL(ctx, "bucket", object, "video/mp4", time.Minute); err == nil {
			t.Fatalf("expected error for object name %q", object)
		}
	}
}

func TestNewResumableSigner_RequiresAccessID(t *testing.T) {
	keyPEM, _ := generateTestKey(t)
	_, err := gcs.NewResumableSigner(context.Background(), "", log.NewStdLogger(io.Discard),
		gcs.WithServiceAccountKey("", keyPEM),
	)
	if err == nil {
		t.Fatal("expected error without access id")
	}
}

func generateTestKey(t *testing.T) ([]byte, string) {
	t.Helper()
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}
	pemBytes := pem.EncodeToMemory(block)
	accessID := "test-signer@unit-test.iam.gserviceaccount.com"
	return pemBytes, accessID
}
