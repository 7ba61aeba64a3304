// Package sanitize constrains untrusted free text before it is stored.
//
// Each field kind has a Policy with a fixed Rule. HTML policies keep an
// allow-list of tags, plain-text policies keep no markup at all. Output is
// HTML-serialized text (&, < and > escaped), so sanitizing an already
// sanitized value returns it unchanged.
package sanitize

// Policy names a sanitization rule
type Policy int

const (
	Bio Policy = iota
	PostContent
	Reply
	Highlight
	Note
	Title
	Review
	BookDescription
	Username
	Email
)

// Kind selects the cleaning strategy of a policy
type Kind int

const (
	KindText Kind = iota
	KindHTML
	KindUsername
	KindEmail
)

// Rule is the immutable configuration behind a Policy
type Rule struct {
	Field       string
	Kind        Kind
	AllowedTags map[string]bool
	MinLength   int
	MaxLength   int
}

var reviewTags = tagSet("p", "br", "b", "strong", "i", "em", "u", "blockquote", "ul", "ol", "li", "a")

var descriptionTags = tagSet("p", "br", "b", "strong", "i", "em", "ul", "ol", "li")

var rules = map[Policy]Rule{
	Bio:             {Field: "bio", Kind: KindText, MaxLength: 500},
	PostContent:     {Field: "content", Kind: KindText, MinLength: 1, MaxLength: 2000},
	Reply:           {Field: "content", Kind: KindText, MinLength: 1, MaxLength: 1000},
	Highlight:       {Field: "content", Kind: KindText, MinLength: 1, MaxLength: 1000},
	Note:            {Field: "note", Kind: KindText, MaxLength: 1000},
	Title:           {Field: "title", Kind: KindText, MinLength: 1, MaxLength: 300},
	Review:          {Field: "review", Kind: KindHTML, AllowedTags: reviewTags, MaxLength: 5000},
	BookDescription: {Field: "description", Kind: KindHTML, AllowedTags: descriptionTags, MaxLength: 5000},
	Username:        {Field: "username", Kind: KindUsername, MinLength: 3, MaxLength: 20},
	Email:           {Field: "email", Kind: KindEmail, MinLength: 3, MaxLength: 254},
}

// Rule returns the configuration of p
func (p Policy) Rule() Rule {
	return rules[p]
}

func (p Policy) String() string {
	switch p {
	case Bio:
		return "bio"
	case PostContent:
		return "postContent"
	case Reply:
		return "reply"
	case Highlight:
		return "highlight"
	case Note:
		return "note"
	case Title:
		return "title"
	case Review:
		return "review"
	case BookDescription:
		return "bookDescription"
	case Username:
		return "username"
	case Email:
		return "email"
	default:
		return "unknown"
	}
}

// Policies lists every defined policy
func Policies() []Policy {
	return []Policy{Bio, PostContent, Reply, Highlight, Note, Title, Review, BookDescription, Username, Email}
}

func tagSet(tags ...string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}
