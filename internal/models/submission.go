package models

// UploadedPhoto is an optional photo attached to a request form.
type UploadedPhoto struct {
	Filename string
	Content  []byte
}

// Present reports whether a file was actually chosen in the form.
func (p *UploadedPhoto) Present() bool {
	return p != nil && p.Filename != ""
}

// Submission is a validated request, held in the session until the document is generated.
type Submission struct {
	Type      DocumentType   `json:"type"`
	Data      FormSubmission `json:"data"`
	PhotoPath string         `json:"photoPath,omitempty"`
}

func (s *Submission) Fields() FieldSet {
	return Bind(s.Type, s.Data)
}
