package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProfanityMasksWholeWords(t *testing.T) {
	f := Default()
	out, changed := f.Apply("Well damn, that shell is hellish", Options{Profanity: true})
	assert.True(t, changed)
	assert.Equal(t, "Well ****, that shell is hellish", out)
}

func TestApplyUnsafeRedactsSpans(t *testing.T) {
	f := Default()
	out, changed := f.Apply("my ssn is 123-45-6789 ok", Options{Unsafe: true})
	assert.True(t, changed)
	assert.Equal(t, "my ssn is "+Redaction+" ok", out)
}

func TestApplyDisabledIsIdentity(t *testing.T) {
	f := Default()
	out, changed := f.Apply("damn", Options{})
	assert.False(t, changed)
	assert.Equal(t, "damn", out)
}

func TestStreamApply(t *testing.T) {
	s := Default().NewStream(Options{Profanity: true})
	assert.Equal(t, "oh ****", s.Apply("oh damn"))
	assert.Equal(t, "oh **** it works", s.Apply("oh damn it works"))
}

func TestStreamPending(t *testing.T) {
	words := Default().NewStream(Options{Profanity: true})
	assert.Equal(t, 4, words.Pending("oh hell"))
	assert.Equal(t, 0, words.Pending("oh hello "))
	assert.Equal(t, 1, words.Pending("id 12-3"))
	assert.Equal(t, 0, words.Pending(""))

	unsafe := Default().NewStream(Options{Unsafe: true})
	assert.Equal(t, 9, unsafe.Pending("ssn 123-45-67"))
	assert.Equal(t, 10, unsafe.Pending("card 4111 1111 "))
	assert.Equal(t, 0, unsafe.Pending("call me "))
	assert.Equal(t, 3, unsafe.Pending("call me"))
}

func TestNewCustomLists(t *testing.T) {
	f, err := New([]string{"zonk"}, []string{})
	require.NoError(t, err)
	out, changed := f.Apply("ZONK and damn", Options{Profanity: true, Unsafe: true})
	assert.True(t, changed)
	assert.Equal(t, "**** and damn", out)
}
