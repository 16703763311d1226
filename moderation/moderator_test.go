package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_Censor_PlainWord(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"spam"}, '*')
	req.NoError(err)
	req.NotNil(moderator)

	censored, found := moderator.Censor("please stop the SPAM now")
	req.Equal("please stop the **** now", censored)
	req.Equal([]string{"spam"}, found)
}

func TestModerator_Censor_LeetVariant(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"spam"}, '*')
	req.NoError(err)

	censored, found := moderator.Censor("buy sp4m today")
	req.Equal("buy **** today", censored)
	req.Len(found, 1)
}

func TestModerator_Censor_CleanTextUntouched(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator([]string{"spam"}, '*')
	req.NoError(err)

	input := "a perfectly fine message"
	censored, found := moderator.Censor(input)
	req.Equal(input, censored)
	req.Empty(found)
}

func TestNewModerator_EmptyListDisablesPass(t *testing.T) {
	req := require.New(t)
	moderator, err := NewModerator(nil, '*')
	req.NoError(err)
	req.Nil(moderator)
}
