// Package validate holds the pure field checks run before a request form
// or a registration is accepted.
package validate

import (
	"github.com/bagumbayan/brgydocs/internal/models"
)

// Result reports whether a submission passed and which fields were missing.
type Result struct {
	OK      bool
	Missing []string
}

var (
	ClearanceRequired = []string{"first_name", "middle_name", "last_name", "address", "purpose"}
	ResidenceRequired = []string{"first_name", "middle_name", "last_name", "address", "years_of_residence", "purpose"}
)

// PhotoField is the form field name of the photo upload.
const PhotoField = "photo"

// Clearance requires every clearance field and an attached photo.
// The photo's extension is checked later by the image handler.
func Clearance(sub models.FormSubmission, photo *models.UploadedPhoto) Result {
	missing := missingFields(sub, ClearanceRequired)
	if !photo.Present() {
		missing = append(missing, PhotoField)
	}
	return result(missing)
}

// Residence requires every residence field; the photo is optional.
func Residence(sub models.FormSubmission) Result {
	return result(missingFields(sub, ResidenceRequired))
}

// Indigency has no fixed field list: every supplied field must be non-empty.
// Like the other rules this is a length check; whitespace counts as content.
func Indigency(sub models.FormSubmission) Result {
	var missing []string
	supplied := 0
	for k, v := range sub {
		if models.ControlFields[k] {
			continue
		}
		supplied++
		if v == "" {
			missing = append(missing, k)
		}
	}
	if supplied == 0 {
		return Result{OK: false}
	}
	return result(sortedCopy(missing))
}

// Submission dispatches to the rules for t.
func Submission(t models.DocumentType, sub models.FormSubmission, photo *models.UploadedPhoto) Result {
	switch t {
	case models.BarangayClearance:
		return Clearance(sub, photo)
	case models.ResidenceCertification:
		return Residence(sub)
	case models.Indigency:
		return Indigency(sub)
	}
	return Result{OK: false}
}

func missingFields(sub models.FormSubmission, required []string) []string {
	var missing []string
	for _, f := range required {
		if sub[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func result(missing []string) Result {
	return Result{OK: len(missing) == 0, Missing: missing}
}
