package marketplace

// Wire types for the marketplace catalog API. The remote is lenient about
// field presence, so identifiers are pointers: a missing ID is converted to
// zero at the port boundary and handled by the syncers, never a parse error.

// treeRequest is the payload for the category tree endpoint
type treeRequest struct {
	CategoryID *int64 `json:"category_id,omitempty"`
	Language   string `json:"language"`
}

// treeNode is one nested node of the category tree response
type treeNode struct {
	CategoryID *int64     `json:"category_id"`
	Name       string     `json:"name"`
	Disabled   bool       `json:"disabled"`
	Children   []treeNode `json:"children"`
}

// treeResponse is the category tree endpoint response
type treeResponse struct {
	Result []treeNode `json:"result"`
}

// attributesRequest is the payload for the attribute schema endpoint
type attributesRequest struct {
	CategoryID       int64  `json:"category_id"`
	ParentCategoryID int64  `json:"parent_category_id,omitempty"`
	Language         string `json:"language"`
}

// wireAttribute is one attribute of the schema response
type wireAttribute struct {
	ID           *int64 `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	IsRequired   bool   `json:"is_required"`
	IsCollection bool   `json:"is_collection"`
	IsAspect     bool   `json:"is_aspect"`
	DictionaryID int64  `json:"dictionary_id"`
	GroupID      int64  `json:"group_id"`
	GroupName    string `json:"group_name"`
}

// attributesResponse is the attribute schema endpoint response
type attributesResponse struct {
	Result []wireAttribute `json:"result"`
}

// valuesRequest is the payload for the dictionary values endpoint
type valuesRequest struct {
	AttributeID      int64  `json:"attribute_id"`
	CategoryID       int64  `json:"category_id"`
	ParentCategoryID int64  `json:"parent_category_id,omitempty"`
	LastValueID      int64  `json:"last_value_id,omitempty"`
	Limit            int    `json:"limit"`
	Language         string `json:"language"`
}

// valuesSearchRequest is the payload for the dictionary value search endpoint
type valuesSearchRequest struct {
	AttributeID      int64  `json:"attribute_id"`
	CategoryID       int64  `json:"category_id"`
	ParentCategoryID int64  `json:"parent_category_id,omitempty"`
	Value            string `json:"value"`
	Limit            int    `json:"limit"`
	Language         string `json:"language"`
}

// wireValue is one dictionary value of the values response
type wireValue struct {
	ID      *int64 `json:"id"`
	Value   string `json:"value"`
	Info    string `json:"info"`
	Picture string `json:"picture"`
}

// valuesResponse is the dictionary values endpoint response
type valuesResponse struct {
	Result  []wireValue `json:"result"`
	HasNext bool        `json:"has_next"`
}

// errorResponse is the error payload returned with non-2xx statuses
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
