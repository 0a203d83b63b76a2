package integration

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// RemoteCatalog Errors
// ---------------------------------------------------------------------------

var (
	// ErrRemoteNotConfigured indicates the marketplace client has no usable configuration
	ErrRemoteNotConfigured = errors.New("integration: marketplace not configured")
	// ErrRemoteUnavailable indicates a transport-level failure (timeout, connection refused)
	ErrRemoteUnavailable = errors.New("integration: marketplace temporarily unavailable")
	// ErrRemoteRequestFailed indicates the marketplace rejected the request (4xx/5xx)
	ErrRemoteRequestFailed = errors.New("integration: marketplace request failed")
	// ErrRemoteInvalidResponse indicates the marketplace returned an unparseable payload
	ErrRemoteInvalidResponse = errors.New("integration: invalid marketplace response")
	// ErrRemoteRateLimited indicates the request was throttled even after the retry
	ErrRemoteRateLimited = errors.New("integration: marketplace rate limited")
	// ErrCategoryUnavailable indicates the marketplace no longer knows the
	// requested category. It is a distinct outcome, not a hard failure: the
	// caller should skip the category and let deprecation handle the rows.
	ErrCategoryUnavailable = errors.New("integration: category unavailable on marketplace")
)

// ---------------------------------------------------------------------------
// Language
// ---------------------------------------------------------------------------

// Language selects which localized pass a catalog fetch belongs to. The two
// members map onto the marketplace's own language tags in the adapter config.
type Language string

const (
	// LanguagePrimary is the seller-facing default language of the account
	LanguagePrimary Language = "PRIMARY"
	// LanguageSecondary is the auxiliary language used to heal display fields
	LanguageSecondary Language = "SECONDARY"
)

// IsValid returns true if the language is one of the fixed enumeration
func (l Language) IsValid() bool {
	switch l {
	case LanguagePrimary, LanguageSecondary:
		return true
	default:
		return false
	}
}

// String returns the string representation of Language
func (l Language) String() string {
	return string(l)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// CategoryNode is one node of the nested tree payload returned by the
// marketplace. The same CategoryID can recur under different parents; a
// CategoryID of zero means the remote omitted the identifier and the node
// must be skipped with a warning.
type CategoryNode struct {
	// CategoryID is the marketplace identifier (zero when absent)
	CategoryID int64
	// Name is the localized display name for the requested language
	Name string
	// IsDisabled marks categories sellers can no longer list products in
	IsDisabled bool
	// Children holds the nested subtree; empty means the node is a leaf
	Children []CategoryNode
}

// IsLeaf returns true if the node has no children in this language pass
func (n CategoryNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// RemoteAttribute is one schema field of a leaf category as reported by the
// marketplace for a single language.
type RemoteAttribute struct {
	AttributeID int64
	Name        string
	Description string
	Type        string
	IsRequired  bool
	// IsCollection marks attributes accepting multiple values
	IsCollection bool
	// IsAspect marks variant-defining attributes
	IsAspect bool
	// DictionaryID is zero for free-text attributes
	DictionaryID int64
	GroupID      int64
	GroupName    string
}

// RemoteValue is one enumerated dictionary option for a single language.
// A ValueID of zero means the remote omitted the identifier.
type RemoteValue struct {
	ValueID int64
	Value   string
	Info    string
	Picture string
}

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// DictionaryPageRequest asks for one page of an attribute's dictionary.
// Pagination is cursor-based: AfterValueID carries the last ValueID of the
// previous page, zero for the first page.
type DictionaryPageRequest struct {
	AttributeID      int64
	CategoryID       int64
	ParentCategoryID int64
	AfterValueID     int64
	PageSize         int
	Language         Language
}

// Validate validates the dictionary page request
func (r *DictionaryPageRequest) Validate() error {
	if r.AttributeID <= 0 || r.CategoryID <= 0 {
		return errors.New("integration: attribute and category IDs are required")
	}
	if !r.Language.IsValid() {
		return errors.New("integration: invalid language")
	}
	if r.PageSize < 1 {
		r.PageSize = 100
	}
	return nil
}

// DictionarySearchRequest asks the marketplace to search an attribute's
// dictionary server-side. Used for large dictionaries where pulling every
// page locally first would be wasteful.
type DictionarySearchRequest struct {
	AttributeID      int64
	CategoryID       int64
	ParentCategoryID int64
	Query            string
	Limit            int
	Language         Language
}

// Validate validates the dictionary search request
func (r *DictionarySearchRequest) Validate() error {
	if r.AttributeID <= 0 || r.CategoryID <= 0 {
		return errors.New("integration: attribute and category IDs are required")
	}
	if r.Query == "" {
		return errors.New("integration: search query is required")
	}
	if !r.Language.IsValid() {
		return errors.New("integration: invalid language")
	}
	if r.Limit < 1 || r.Limit > 500 {
		r.Limit = 100
	}
	return nil
}

// ---------------------------------------------------------------------------
// RemoteCatalog Port Interface
// ---------------------------------------------------------------------------

// RemoteCatalog is the port for the marketplace's catalog endpoints. Every
// implementation is expected to rate-limit its own calls, honor a single
// Retry-After hint on HTTP 429, and surface all other failures as the typed
// errors above without further silent retries.
type RemoteCatalog interface {
	// FetchCategoryTree returns the complete nested category structure
	// starting from rootID, or from the taxonomy roots when rootID is nil.
	FetchCategoryTree(ctx context.Context, rootID *int64, lang Language) ([]CategoryNode, error)

	// FetchAttributes returns the attribute schema of one leaf category.
	// The parent category disambiguates leaves that appear under several
	// branches; zero means the leaf is a root-level category.
	FetchAttributes(ctx context.Context, parentCategoryID, leafCategoryID int64, lang Language) ([]RemoteAttribute, error)

	// FetchDictionaryPage returns one page of dictionary values and a flag
	// indicating whether more pages follow.
	FetchDictionaryPage(ctx context.Context, req DictionaryPageRequest) ([]RemoteValue, bool, error)

	// SearchDictionaryValues searches a dictionary server-side.
	SearchDictionaryValues(ctx context.Context, req DictionarySearchRequest) ([]RemoteValue, error)
}
