package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	bad := []Settings{
		{Rate: 1, Pitch: 1},
		{Language: "en-US", Rate: 0, Pitch: 1},
		{Language: "en-US", Rate: 5, Pitch: 1},
		{Language: "en-US", Rate: 1, Pitch: -0.1},
		{Language: "en-US", Rate: 1, Pitch: 2.5},
	}
	for _, s := range bad {
		assert.Error(t, s.Validate(), "%+v", s)
	}
}
