package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"memory-transition-server/modules/common/apperr"
)

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		want        error
	}{
		{"jpeg", "image/jpeg", 1024, nil},
		{"png", "image/png", MaxImageBytes, nil},
		{"webp with params", "image/webp; charset=binary", 10, nil},
		{"upper case", "IMAGE/PNG", 10, nil},
		{"gif", "image/gif", 10, ErrInvalidType},
		{"empty type", "", 10, ErrInvalidType},
		{"pdf", "application/pdf", 10, ErrInvalidType},
		{"one byte over", "image/jpeg", MaxImageBytes + 1, ErrTooLarge},
		{"bad type wins over size", "text/plain", MaxImageBytes + 1, ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(tt.contentType, tt.size)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestValidateDimensions(t *testing.T) {
	require.NoError(t, ValidateDimensions(10, 10, 0))
	require.NoError(t, ValidateDimensions(300, 300, MinImageDimension))
	require.ErrorIs(t, ValidateDimensions(299, 1000, MinImageDimension), ErrTooSmall)

	err := ValidateDimensions(100, 100, 512)
	require.Error(t, err)
	require.Equal(t, "Image must be at least 512x512 pixels", apperr.PublicMessage(err, ""))
}

func TestErrorMessages(t *testing.T) {
	require.Equal(t, "Please use a JPG, PNG, or WebP image", ErrInvalidType.Error())
	require.Equal(t, "Image must be under 10MB", ErrTooLarge.Error())
	require.Equal(t, "No file provided", ErrNoFile.Error())
}
