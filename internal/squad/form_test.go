package squad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormStore(t *testing.T) {
	sq := Squad{ID: "sq1", Name: "Gophers", Handle: "gophers", Image: "https://img/g.png"}
	store := NewFormStore(sq, nil, &ExternalLink{Title: "Example", URL: "https://x"})

	form := store.Snapshot()
	assert.Equal(t, "Gophers", form.Name)
	assert.Equal(t, "gophers", form.Handle)
	assert.Equal(t, "https://img/g.png", form.Image)
	assert.Equal(t, "Done", form.ActionLabel)
	assert.Nil(t, form.Post)
	assert.True(t, form.HasContext())
}

func TestFormStore_SnapshotIsCopy(t *testing.T) {
	store := NewFormStore(Squad{}, &Post{ID: "p1", Title: "original"}, nil)

	form := store.Snapshot()
	form.Post.Title = "changed"
	form.Commentary = "changed"

	again := store.Snapshot()
	assert.Equal(t, "original", again.Post.Title)
	assert.Empty(t, again.Commentary)
}

func TestFormStore_Setters(t *testing.T) {
	store := NewFormStore(Squad{}, nil, nil)
	assert.False(t, store.Snapshot().HasContext())

	store.SetPost(&Post{ID: "p1"})
	store.SetCommentary("worth a read")

	form := store.Snapshot()
	assert.Equal(t, "p1", form.Post.ID)
	assert.Equal(t, "worth a read", form.Commentary)
}
