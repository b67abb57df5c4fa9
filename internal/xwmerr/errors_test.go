package xwmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(fmt.Errorf("binding xdg_wm_base: %w", ErrMissingRequiredGlobal)))
	assert.False(t, IsFatal(errors.New("selection transfer read error")))
}
