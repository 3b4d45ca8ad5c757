package domain

import "time"

// ShareStatus is the visibility of a shared item.
type ShareStatus string

// Share statuses.
const (
	SharePrivate ShareStatus = "private"
	ShareLink    ShareStatus = "link"
	SharePublic  ShareStatus = "public"
)

// ShareConfig is the per-item sharing policy. The password, when set, is kept
// as supplied; hashing shared-link passwords client-side buys nothing since
// the client holds both sides.
type ShareConfig struct {
	Status    ShareStatus `json:"status"`
	ShareID   string      `json:"shareId,omitempty"`
	Password  string      `json:"password,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	ViewCount int         `json:"viewCount"`
	MaxViews  int         `json:"maxViews,omitempty"`
}

// Expired reports whether the share's expiry time has passed.
func (s *ShareConfig) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// ViewsExhausted reports whether the view budget is used up.
// MaxViews of zero means unlimited.
func (s *ShareConfig) ViewsExhausted() bool {
	return s.MaxViews > 0 && s.ViewCount >= s.MaxViews
}

// Accessible reports whether the shared item may still be served.
// An expired or view-exhausted share is treated as not-found.
func (s *ShareConfig) Accessible(now time.Time) bool {
	if s == nil || s.Status == SharePrivate {
		return false
	}
	return !s.Expired(now) && !s.ViewsExhausted()
}
