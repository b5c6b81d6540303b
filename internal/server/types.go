package server

// Tool is the JSON shape of a tool in GET /tools.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

// CallRequest is the body of POST /call.
type CallRequest struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"arguments"`
}

// CallResponse is the reply to POST /call. Tool failures are reported in
// IsError with a 200 status; the text is the same one MCP clients see.
type CallResponse struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}
