package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasToken(t *testing.T) {
	assert.True(t, HasToken("grep -rn x .", "grep"))
	assert.True(t, HasToken("cat a | grep x", "grep"))
	assert.True(t, HasToken("(cat a)", "cat"))
	assert.False(t, HasToken("egrep x", "grep"))
	assert.False(t, HasToken("concatenate", "cat"))
	assert.False(t, HasToken("", "cat"))
	assert.False(t, HasToken("cat", ""))
}

func TestReplaceToken(t *testing.T) {
	assert.Equal(t, "bat a | bat b", ReplaceToken("cat a | cat b", "cat", "bat"))
	assert.Equal(t, "bat concat.txt", ReplaceToken("cat concat.txt", "cat", "bat"))
	assert.Equal(t, "ls -la", ReplaceToken("ls -la", "cat", "bat"))
}

func TestReplaceToken_Idempotent(t *testing.T) {
	once := ReplaceToken("du -sh . && du -h x", "du", "dust")
	assert.Equal(t, "dust -sh . && dust -h x", once)
	assert.Equal(t, once, ReplaceToken(once, "du", "dust"))
}
