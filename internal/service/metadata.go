package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	apperrors "plugin-directory-backend/internal/errors"

	"github.com/jinzhu/now"
	"github.com/spf13/cast"
	"gorm.io/datatypes"
)

// PluginMetadata is the plugin-info payload of a sync record, decoded once.
// Pointer fields are nil when the key is absent or has an unusable shape.
type PluginMetadata struct {
	Slug             string
	Name             *string
	ShortDescription string
	Description      string
	Version          *string
	Author           string
	Requires         string
	RequiresPHP      *string
	Tested           string
	DownloadLink     string
	Added            *time.Time
	LastUpdated      *time.Time
	AuthorProfile    *string

	Rating                 int
	NumRatings             int
	SupportThreads         int
	SupportThreadsResolved int
	ActiveInstalls         int
	Downloaded             int

	Homepage             *string
	DonateLink           *string
	BusinessModel        *string
	CommercialSupportURL *string
	SupportURL           *string
	PreviewLink          *string
	RepositoryURL        *string

	Ratings         datatypes.JSON
	Banners         datatypes.JSON
	Contributors    datatypes.JSON
	Icons           datatypes.JSON
	Source          datatypes.JSON
	RequiresPlugins datatypes.JSON
	Compatibility   datatypes.JSON
	Screenshots     datatypes.JSON
	Sections        datatypes.JSON
	Versions        datatypes.JSON
	UpgradeNotice   datatypes.JSON

	// Tags maps tag slug to display name. nil means the payload had no tag
	// list; an empty map means the plugin has no tags.
	Tags map[string]string
}

// timeLayouts are tried in order before falling back to jinzhu/now
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 3:04pm MST",
	"2006-01-02 3:04pm",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseMetadata decodes a raw payload. Only a non-object payload is an error;
// every field is optional and silently defaulted when malformed.
func ParseMetadata(raw []byte) (*PluginMetadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, apperrors.ErrInvalidMetadata
	}
	p := payload(fields)

	meta := &PluginMetadata{
		Slug:             p.str("slug"),
		Name:             p.strPtr("name"),
		ShortDescription: p.str("short_description"),
		Description:      p.str("description"),
		Version:          p.strPtr("version"),
		Author:           p.str("author"),
		Requires:         p.str("requires"),
		RequiresPHP:      p.strPtr("requires_php"),
		Tested:           p.str("tested"),
		DownloadLink:     p.str("download_link"),
		Added:            p.timestamp("added"),
		LastUpdated:      p.timestamp("last_updated"),
		AuthorProfile:    p.strPtr("author_profile"),

		Rating:                 p.integer("rating"),
		NumRatings:             p.integer("num_ratings"),
		SupportThreads:         p.integer("support_threads"),
		SupportThreadsResolved: p.integer("support_threads_resolved"),
		ActiveInstalls:         p.integer("active_installs"),
		Downloaded:             p.integer("downloaded"),

		Homepage:             p.strPtr("homepage"),
		DonateLink:           p.strPtr("donate_link"),
		BusinessModel:        p.strPtr("business_model"),
		CommercialSupportURL: p.strPtr("commercial_support_url"),
		SupportURL:           p.strPtr("support_url"),
		PreviewLink:          p.strPtr("preview_link"),
		RepositoryURL:        p.strPtr("repository_url"),

		Ratings:         p.structured("ratings"),
		Banners:         p.structured("banners"),
		Contributors:    p.structured("contributors"),
		Icons:           p.structured("icons"),
		Source:          p.structured("source"),
		RequiresPlugins: p.structured("requires_plugins"),
		Compatibility:   p.structured("compatibility"),
		Screenshots:     p.structured("screenshots"),
		Sections:        p.structured("sections"),
		Versions:        p.structured("versions"),
		UpgradeNotice:   p.structured("upgrade_notice"),

		Tags: p.tags("tags"),
	}
	return meta, nil
}

// ParseTime parses the date formats found in plugin-info payloads
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	if t, err := now.Parse(value); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

type payload map[string]json.RawMessage

// value decodes key into a generic value, keeping numbers as json.Number
func (p payload) value(key string) (interface{}, bool) {
	raw, ok := p[key]
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func (p payload) strPtr(key string) *string {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	s, ok := toString(v)
	if !ok {
		return nil
	}
	return &s
}

func (p payload) str(key string) string {
	if s := p.strPtr(key); s != nil {
		return *s
	}
	return ""
}

func (p payload) integer(key string) int {
	v, ok := p.value(key)
	if !ok {
		return 0
	}
	if n, isNumber := v.(json.Number); isNumber {
		if i, err := n.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		// out of range or not a number reads as 0
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || f >= math.MaxInt || f <= math.MinInt {
			return 0
		}
		return int(f)
	}
	if s, isString := v.(string); isString {
		v = strings.TrimSpace(s)
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return i
}

func (p payload) timestamp(key string) *time.Time {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, ok := ParseTime(s)
	if !ok {
		return nil
	}
	return &t
}

// structured keeps objects and arrays verbatim; scalars are dropped
func (p payload) structured(key string) datatypes.JSON {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil
	}
	if !json.Valid(trimmed) {
		return nil
	}
	out := make([]byte, len(trimmed))
	copy(out, trimmed)
	return datatypes.JSON(out)
}

// tags accepts an object of slug => name, or an array. An empty array is the
// PHP encoding of "no tags"; string elements are used as both slug and name.
func (p payload) tags(key string) map[string]string {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for slug, name := range t {
			if slug == "" {
				continue
			}
			s, ok := toString(name)
			// an empty or non-string name is stored as the slug, never as ""
			if !ok || s == "" {
				s = slug
			}
			out[slug] = s
		}
		return out
	case []interface{}:
		out := make(map[string]string, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok || s == "" {
				continue
			}
			out[s] = s
		}
		return out
	default:
		return nil
	}
}

func toString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case map[string]interface{}, []interface{}:
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}
