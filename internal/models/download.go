package models

// DownloadResult is the outcome of downloading one book.
type DownloadResult struct {
	MD5     BookID `json:"md5"`
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	File    string `json:"file,omitempty"`
	Bytes   int64  `json:"bytes"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DownloadReport summarises a bulk download and is written as its manifest.
type DownloadReport struct {
	Total           int              `json:"total"`
	Succeeded       int              `json:"succeeded"`
	Failed          int              `json:"failed"`
	OutputDirectory string           `json:"output_directory"`
	ManifestPath    string           `json:"-"`
	Results         []DownloadResult `json:"results"`
}
