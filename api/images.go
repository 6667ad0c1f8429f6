package api

// UploadResponse is the envelope the editor expects from an image upload.
type UploadResponse struct {
	Msg  string      `json:"msg"`
	Code int         `json:"code"`
	Data *UploadData `json:"data,omitempty"`
}

type UploadData struct {
	ErrFiles []string          `json:"errFiles"`
	SuccMap  map[string]string `json:"succMap"`
}
