package models

// UploadSubmission is the book upload form sent to the catalog.
type UploadSubmission struct {
	Title       string   `json:"title" validate:"required,max=512"`
	Author      string   `json:"author" validate:"required,max=256"`
	Publisher   string   `json:"publisher" validate:"required,max=256"`
	Year        string   `json:"year" validate:"required,numeric,len=4"`
	Format      string   `json:"format" validate:"required,oneof=epub mobi pdf"`
	Series      string   `json:"series,omitempty" validate:"omitempty,max=256"`
	ISBN        string   `json:"isbn,omitempty" validate:"omitempty,isbn"`
	CID         string   `json:"cid,omitempty" validate:"omitempty,max=128"`
	OtherTitles []string `json:"other_titles,omitempty" validate:"omitempty,dive,max=512"`
	Description string   `json:"description,omitempty" validate:"omitempty,max=10000"`
	BookFile    string   `json:"-" validate:"required,file"`
	CoverFile   string   `json:"-" validate:"omitempty,file"`
}

// UploadResult is the catalog's answer to an upload: an id on success or an error message.
type UploadResult struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}
