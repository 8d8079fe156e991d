package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagumbayan/brgydocs/internal/models"
)

func clearanceForm() models.FormSubmission {
	return models.FormSubmission{
		"first_name":  "Juan",
		"middle_name": "Dela",
		"last_name":   "Cruz",
		"address":     "123 Main St",
		"purpose":     "Employment",
	}
}

func photo() *models.UploadedPhoto {
	return &models.UploadedPhoto{Filename: "me.jpg", Content: []byte{0xff, 0xd8}}
}

func TestClearanceAcceptsCompleteForm(t *testing.T) {
	res := Clearance(clearanceForm(), photo())
	assert.True(t, res.OK)
	assert.Empty(t, res.Missing)
}

func TestClearanceRejectsAnyMissingField(t *testing.T) {
	for _, field := range ClearanceRequired {
		t.Run("missing "+field, func(t *testing.T) {
			form := clearanceForm()
			delete(form, field)
			res := Clearance(form, photo())
			assert.False(t, res.OK)
			assert.Equal(t, []string{field}, res.Missing)
		})
		t.Run("empty "+field, func(t *testing.T) {
			form := clearanceForm()
			form[field] = ""
			res := Clearance(form, photo())
			assert.False(t, res.OK)
			assert.Equal(t, []string{field}, res.Missing)
		})
	}
}

func TestWhitespaceCountsAsContent(t *testing.T) {
	form := clearanceForm()
	form["first_name"] = " "
	assert.True(t, Clearance(form, photo()).OK)

	form["years_of_residence"] = "\t"
	assert.True(t, Residence(form).OK)

	res := Indigency(models.FormSubmission{"first_name": "Juan", "purpose": "   "})
	assert.True(t, res.OK)
	assert.Empty(t, res.Missing)
}

func TestClearanceRequiresPhoto(t *testing.T) {
	res := Clearance(clearanceForm(), nil)
	require.False(t, res.OK)
	assert.Equal(t, []string{PhotoField}, res.Missing)

	res = Clearance(clearanceForm(), &models.UploadedPhoto{Filename: ""})
	assert.False(t, res.OK)
}

func TestClearanceDefersExtensionCheck(t *testing.T) {
	res := Clearance(clearanceForm(), &models.UploadedPhoto{Filename: "resume.pdf"})
	assert.True(t, res.OK)
}

func TestResidencePhotoOptional(t *testing.T) {
	form := clearanceForm()
	form["years_of_residence"] = "12"
	assert.True(t, Residence(form).OK)

	delete(form, "years_of_residence")
	res := Residence(form)
	assert.False(t, res.OK)
	assert.Equal(t, []string{"years_of_residence"}, res.Missing)
}

func TestIndigency(t *testing.T) {
	tests := []struct {
		name    string
		form    models.FormSubmission
		ok      bool
		missing []string
	}{
		{
			name: "all supplied fields filled",
			form: models.FormSubmission{"first_name": "Maria", "household_size": "6", "monthly_income": "4000"},
			ok:   true,
		},
		{
			name:    "one empty value",
			form:    models.FormSubmission{"first_name": "Maria", "monthly_income": ""},
			missing: []string{"monthly_income"},
		},
		{
			name:    "several empty values reported sorted",
			form:    models.FormSubmission{"b": "", "a": "", "c": " "},
			missing: []string{"a", "b"},
		},
		{
			name: "control fields ignored",
			form: models.FormSubmission{"document_type": "", "first_name": "Maria"},
			ok:   true,
		},
		{
			name: "nothing supplied",
			form: models.FormSubmission{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Indigency(tt.form)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, tt.missing, res.Missing)
		})
	}
}

func TestSubmissionDispatch(t *testing.T) {
	assert.True(t, Submission(models.BarangayClearance, clearanceForm(), photo()).OK)
	assert.False(t, Submission(models.BarangayClearance, clearanceForm(), nil).OK)
	assert.True(t, Submission(models.Indigency, clearanceForm(), nil).OK)
	assert.False(t, Submission(models.DocumentType("passport"), clearanceForm(), photo()).OK)
}
