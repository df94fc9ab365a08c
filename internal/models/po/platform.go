package po

// Platform 表示支持分发的外部平台。
type Platform string

// 平台常量定义。
const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
)

// KnownPlatforms 返回全部受支持的平台列表（固定顺序）。
func KnownPlatforms() []Platform {
	return []Platform{PlatformYouTube, PlatformTikTok, PlatformInstagram, PlatformTwitter}
}

// IsValid 判断平台取值是否合法。
func (p Platform) IsValid() bool {
	switch p {
	case PlatformYouTube, PlatformTikTok, PlatformInstagram, PlatformTwitter:
		return true
	default:
		return false
	}
}
