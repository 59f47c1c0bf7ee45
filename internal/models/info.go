package models

// VideoFormat 可下载的视频格式
type VideoFormat struct {
	Resolution string `json:"resolution"`
	Filesize   string `json:"filesize"`
	Type       string `json:"type"` // video_audio | video_only
	FormatID   string `json:"format_id"`
}

// AudioFormat 可下载的音频格式
type AudioFormat struct {
	Quality  string `json:"quality"`
	Filesize string `json:"filesize"`
	FormatID string `json:"format_id"`
}

// VideoInfo 单视频信息快照。由信息接口返回后不再修改,
// 仅作为后续下载请求的参数来源,新的查询整体替换。
type VideoInfo struct {
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	AuthorURL    string        `json:"author_url,omitempty"`
	Platform     string        `json:"platform"`
	Thumbnail    string        `json:"thumbnail"`
	OriginalURL  string        `json:"original_url"`
	EmbedURL     string        `json:"embed_url,omitempty"`
	Duration     string        `json:"duration"`
	UploadDate   string        `json:"upload_date"`
	LikeCount    string        `json:"like_count"`
	VideoFormats []VideoFormat `json:"video_formats"`
	AudioFormats []AudioFormat `json:"audio_formats"`
	BestAudioID  string        `json:"best_audio_id"`
}

// PlaylistVideo 播放列表中的单个条目
type PlaylistVideo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration string `json:"duration"`
}

// PlaylistInfo 播放列表信息快照,同VideoInfo一样不可变
type PlaylistInfo struct {
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Thumbnail   string          `json:"thumbnail"`
	VideoCount  int             `json:"video_count"`
	OriginalURL string          `json:"original_url"`
	Videos      []PlaylistVideo `json:"videos"`
}

// InfoResult 信息接口的判别结果: 单视频或播放列表二选一
type InfoResult struct {
	Video    *VideoInfo
	Playlist *PlaylistInfo
}

// IsPlaylist 判断结果是否为播放列表
func (r *InfoResult) IsPlaylist() bool {
	return r.Playlist != nil
}
