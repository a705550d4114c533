package sheets

// ValueRange is a rectangular block of cell values addressed by an A1
// range, as exchanged with the spreadsheet values API.
type ValueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values,omitempty"`
}

// AppendResponse is the response from POST .../values/{range}:append.
type AppendResponse struct {
	SpreadsheetID string         `json:"spreadsheetId"`
	TableRange    string         `json:"tableRange,omitempty"`
	Updates       *UpdateSummary `json:"updates,omitempty"`
}

// UpdateSummary summarizes the cells touched by a write.
type UpdateSummary struct {
	UpdatedRange   string `json:"updatedRange,omitempty"`
	UpdatedRows    int    `json:"updatedRows,omitempty"`
	UpdatedColumns int    `json:"updatedColumns,omitempty"`
	UpdatedCells   int    `json:"updatedCells,omitempty"`
}

// BatchUpdateRequest is the body of POST .../values:batchUpdate.
type BatchUpdateRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []ValueRange `json:"data"`
}

// BatchUpdateResponse is the response from POST .../values:batchUpdate.
type BatchUpdateResponse struct {
	SpreadsheetID       string `json:"spreadsheetId"`
	TotalUpdatedCells   int    `json:"totalUpdatedCells"`
	TotalUpdatedRows    int    `json:"totalUpdatedRows"`
	TotalUpdatedColumns int    `json:"totalUpdatedColumns"`
}

// ErrorResponse is the provider's error envelope.
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// TokenResponse is the response from the session token endpoint.
type TokenResponse struct {
	UserID           string `json:"user_id"`
	TokenType        string `json:"token_type,omitempty"`
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}
