package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpOverview(t *testing.T) {
	svc := NewHelpService()

	public := svc.Overview(false)
	assert.Contains(t, public, "/apikey add")
	assert.Contains(t, public, "/help")
	// Signups are open to every member, not just moderators.
	assert.Contains(t, public, "/comp signup")
	assert.Contains(t, public, "/comp withdraw")
	assert.NotContains(t, public, "/db")
	assert.NotContains(t, public, "moderator role")

	full := svc.Overview(true)
	assert.Contains(t, full, "/db")
	assert.Contains(t, full, "/wvw")
	assert.Contains(t, full, "moderator role")
}
