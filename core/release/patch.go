package release

import (
	"net/url"
	"strings"

	"Tunedrop/model"

	"github.com/google/uuid"
)

// CoverArtPatch 封面的部分更新，nil 字段保持原值
type CoverArtPatch struct {
	ImageURL *string `json:"imageUrl"`
	FileName *string `json:"fileName"`
	FileSize *int64  `json:"fileSize"`
	Format   *string `json:"format"`
	Width    *int    `json:"width"`
	Height   *int    `json:"height"`
}

func (p *CoverArtPatch) validate() error {
	if p == nil {
		return nil
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		if err := validateURL("coverArt.imageUrl", *p.ImageURL); err != nil {
			return err
		}
	}
	if p.FileSize != nil && *p.FileSize < 0 {
		return validationError("coverArt.fileSize must not be negative")
	}
	if (p.Width != nil && *p.Width < 0) || (p.Height != nil && *p.Height < 0) {
		return validationError("coverArt dimensions must not be negative")
	}
	return nil
}

func (p *CoverArtPatch) apply(c *model.CoverArt) {
	if p == nil {
		return
	}
	setString(&c.ImageURL, p.ImageURL)
	setString(&c.FileName, p.FileName)
	setString(&c.Format, p.Format)
	if p.FileSize != nil {
		c.FileSize = *p.FileSize
	}
	if p.Width != nil {
		c.Width = *p.Width
	}
	if p.Height != nil {
		c.Height = *p.Height
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setStrings(dst *[]string, src *[]string) {
	if src != nil {
		*dst = cleanStrings(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// cleanStrings 去掉空白项
func cleanStrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("%s must be an http(s) URL", field)
	}
	return nil
}

func validateWindow(field string, w *model.TimeWindow) error {
	if w == nil {
		return nil
	}
	if w.Start < 0 || w.End <= w.Start {
		return validationError("%s must satisfy 0 <= start < end", field)
	}
	return nil
}

func validateAudioFiles(prefix string, files []model.AudioFile) error {
	for i, f := range files {
		if blank(f.URL) {
			return validationError("%s.audioFiles[%d].url is required", prefix, i)
		}
		if err := validateURL(prefix+".audioFiles.url", f.URL); err != nil {
			return err
		}
		if f.FileSize < 0 || f.Duration < 0 {
			return validationError("%s.audioFiles[%d] size and duration must not be negative", prefix, i)
		}
	}
	return nil
}

// ensureTrackID 缺失时生成曲目 ID
func ensureTrackID(id string) string {
	if blank(id) {
		return uuid.New().String()
	}
	return id
}

// checkUniqueTrackIDs 同一发行内曲目 ID 不能重复
func checkUniqueTrackIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if seen[id] {
			return validationError("duplicate trackId %q", id)
		}
		seen[id] = true
	}
	return nil
}
