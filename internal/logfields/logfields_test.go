package logfields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttrKeysStable(t *testing.T) {
	assert.Equal(t, KeySubmodule, Submodule("mq2").Key)
	assert.Equal(t, KeyBranch, Branch("main").Key)
	assert.Equal(t, KeyStep, Step("fetch-origin").Key)
	assert.Equal(t, KeyAhead, Ahead(3).Key)
}

func TestErrorAttr(t *testing.T) {
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, "", Error(nil).Value.String())
}
