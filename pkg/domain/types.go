package domain

import "time"

type ContentType string

const (
	ContentSocialPost      ContentType = "SOCIAL_POST"
	ContentEmailNewsletter ContentType = "EMAIL_NEWSLETTER"
	ContentBlogOutline     ContentType = "BLOG_OUTLINE"
	ContentBlogFull        ContentType = "BLOG_FULL"
	ContentAdCopy          ContentType = "AD_COPY"
)

// ContentTypes lists every supported content type in dashboard order.
var ContentTypes = []ContentType{
	ContentSocialPost,
	ContentEmailNewsletter,
	ContentBlogOutline,
	ContentBlogFull,
	ContentAdCopy,
}

// Valid reports whether t is one of the fixed content types.
func (t ContentType) Valid() bool {
	for _, ct := range ContentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

const DefaultTone = "Inspirational & Authoritative"

// TonePresets are the tones offered by the dashboard. Any string is accepted as a tone.
var TonePresets = []string{
	DefaultTone,
	"Direct & Aggressive",
	"Educational & Helpful",
	"Story-driven & Relatable",
}

type PostStatus string

const (
	StatusDraft     PostStatus = "DRAFT"
	StatusScheduled PostStatus = "SCHEDULED"
	StatusPosted    PostStatus = "POSTED"
)

type ChannelStatus string

const (
	ChannelConnected    ChannelStatus = "CONNECTED"
	ChannelDisconnected ChannelStatus = "DISCONNECTED"
)

const (
	PlatformLinkedIn     = "LinkedIn"
	PlatformInstagram    = "Instagram"
	PlatformFacebook     = "Facebook"
	PlatformOfficialBlog = "Official Blog"
)

type BookProfile struct {
	Title          string   `json:"title" yaml:"title"`
	Subtitle       string   `json:"subtitle" yaml:"subtitle"`
	Author         string   `json:"author" yaml:"author"`
	Description    string   `json:"description" yaml:"description"`
	TargetAudience string   `json:"targetAudience" yaml:"targetAudience"`
	KeyTakeaways   []string `json:"keyTakeaways" yaml:"keyTakeaways"`
	PurchaseLink   string   `json:"purchaseLink,omitempty" yaml:"purchaseLink"`
}

type ContentRequest struct {
	ContentType ContentType `json:"contentType"`
	Tone        string      `json:"tone"`
}

type GeneratedContent struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// ScheduledPost is one queue entry. Uploaded media is referenced by ImageKey
// and ImageURL is presigned from it on every read; inline media lives in
// ImageURL directly.
type ScheduledPost struct {
	ID            string      `json:"id"`
	Type          ContentType `json:"type"`
	Platform      string      `json:"platform"`
	Headline      string      `json:"headline,omitempty"`
	Content       string      `json:"content"`
	ImagePrompt   string      `json:"imagePrompt,omitempty"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	ImageKey      string      `json:"imageKey,omitempty"`
	ScheduledTime time.Time   `json:"scheduledTime"`
	Status        PostStatus  `json:"status"`
	PostedAt      *time.Time  `json:"postedAt,omitempty"`
}

// HasImage reports whether media was already attached to the post.
func (p ScheduledPost) HasImage() bool {
	return p.ImageURL != "" || p.ImageKey != ""
}

type ChannelAccount struct {
	Platform      string        `json:"platform"`
	DisplayHandle string        `json:"displayHandle"`
	Status        ChannelStatus `json:"status"`
	LastSyncedAt  *time.Time    `json:"lastSyncedAt,omitempty"`
}

type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type ChatReply struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback,omitempty"`
}
