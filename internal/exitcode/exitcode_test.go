package exitcode_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cribo/cribo/internal/exitcode"
)

func TestGet(t *testing.T) {
	wrapped := fmt.Errorf("usage: %w", exitcode.Set(errors.New("bad flag"), 2))

	assert.Equal(t, 0, exitcode.Get(nil))
	assert.Equal(t, 1, exitcode.Get(errors.New("bundling failed")))
	assert.Equal(t, 2, exitcode.Get(exitcode.Set(errors.New("bad flag"), 2)))
	assert.Equal(t, 2, exitcode.Get(wrapped))
}

func TestSetKeepsError(t *testing.T) {
	err := errors.New("entry not found")
	coded := exitcode.Set(err, 1)

	assert.Equal(t, err.Error(), coded.Error())
	assert.True(t, errors.Is(coded, err))
}

func TestSetNil(t *testing.T) {
	assert.NoError(t, exitcode.Set(nil, 3))
}
