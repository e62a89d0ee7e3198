package ipc

import "encoding/json"

// Request is one command from the host shell. ID is echoed back untouched.
type Request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

type Response struct {
	ID    json.RawMessage `json:"id,omitempty"`
	OK    bool            `json:"ok"`
	Data  any             `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Remaining is set for invalid_password.
	Remaining *uint32 `json:"remaining,omitempty"`
}

type passwordArgs struct {
	MasterPassword string `json:"masterPassword"`
}

type addArgs struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateArgs struct {
	ID       string  `json:"id"`
	URL      *string `json:"url"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type idArgs struct {
	ID string `json:"id"`
}

type queryArgs struct {
	Query string `json:"query"`
}

type urlArgs struct {
	URL string `json:"url"`
}

type changeArgs struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type generateArgs struct {
	Length         *int  `json:"length"`
	IncludeSymbols *bool `json:"includeSymbols"`
}
