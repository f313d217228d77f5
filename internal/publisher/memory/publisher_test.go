package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type completion struct {
	GameID string `json:"game_id"`
	Clicks int    `json:"clicks"`
}

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "game.won", completion{GameID: "g-1", Clicks: 12})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), "game.won", completion{GameID: "g-2", Clicks: 30})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "game.won", msgs[0].Topic)
	require.Equal(t, completion{GameID: "g-1", Clicks: 12}, msgs[0].Payload)
	require.Equal(t, completion{GameID: "g-2", Clicks: 30}, msgs[1].Payload)
}

func TestMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "game.won", completion{GameID: "g-1"})
	require.NoError(t, err)

	msgs := pub.Messages()
	msgs[0].Topic = "mutated"
	require.Equal(t, "game.won", pub.Messages()[0].Topic)
}
