package sessions

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MaxSessionsPerUser is the default cap on concurrently active sessions for one user.
const MaxSessionsPerUser = 2

// Device describes the browser or client a session was created from.
type Device struct {
	UserAgent      string `bson:"userAgent" json:"userAgent"`
	IP             string `bson:"ip" json:"ip"`
	Browser        string `bson:"browser,omitempty" json:"browser,omitempty"`
	BrowserVersion string `bson:"browserVersion,omitempty" json:"browserVersion,omitempty"`
	OS             string `bson:"os,omitempty" json:"os,omitempty"`
	Platform       string `bson:"platform,omitempty" json:"platform,omitempty"`
	IsMobile       bool   `bson:"isMobile" json:"isMobile"`
	IsBot          bool   `bson:"isBot" json:"isBot"`
}

// Session is one authenticated device. SessionID is the public identifier and is
// unrelated to the storage row id.
type Session struct {
	ObjectID     bson.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID    string        `bson:"sessionId" json:"sessionId"`
	UserID       string        `bson:"userId" json:"userId"`
	AccessToken  string        `bson:"accessToken" json:"-"` // last issued token, audit only
	Device       Device        `bson:"device" json:"device"`
	IsActive     bool          `bson:"isActive" json:"isActive"`
	LastActivity time.Time     `bson:"lastActivity" json:"lastActivity"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	ExpiresAt    time.Time     `bson:"expiresAt" json:"expiresAt"`
	Seq          int64         `bson:"seq" json:"-"` // arrival order, breaks lastActivity ties
}

// IsValidAt reports whether the session is active and unexpired at now.
func (s *Session) IsValidAt(now time.Time) bool {
	return s != nil && s.IsActive && s.ExpiresAt.After(now)
}

// MoreRecent orders sessions by lastActivity, then by arrival.
func MoreRecent(a, b *Session) bool {
	if !a.LastActivity.Equal(b.LastActivity) {
		return a.LastActivity.After(b.LastActivity)
	}
	return a.Seq > b.Seq
}

// View is the "your devices" projection handed to clients.
type View struct {
	SessionID    string    `json:"sessionId"`
	Device       Device    `json:"device"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Current      bool      `json:"current"`
}

// Views projects list, marking the entry matching currentSessionID.
func Views(list []*Session, currentSessionID string) []View {
	views := make([]View, 0, len(list))
	for _, s := range list {
		views = append(views, View{
			SessionID:    s.SessionID,
			Device:       s.Device,
			LastActivity: s.LastActivity,
			CreatedAt:    s.CreatedAt,
			ExpiresAt:    s.ExpiresAt,
			Current:      s.SessionID == currentSessionID,
		})
	}
	return views
}
