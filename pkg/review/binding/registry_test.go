package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	r.Stage("Lastenheft.docx", []byte("v1"))
	r.Stage("plan.pdf", []byte("p"))
	r.Stage("Lastenheft.docx", []byte("v2"))

	b, ok := r.Get("Lastenheft.docx")
	assert.True(t, ok)
	assert.Equal(t, StateUnbound, b.State)
	assert.Equal(t, []byte("v2"), r.Staged("Lastenheft.docx"))
	assert.Len(t, r.List(), 2)
	assert.Equal(t, "Lastenheft.docx", r.List()[0].FileName)

	r.MarkBound("Lastenheft.docx", "file-1")
	r.MarkBound("plan.pdf", "file-2")
	assert.Equal(t, []string{"Lastenheft.docx", "plan.pdf"}, r.Bound())

	b, _ = r.Get("Lastenheft.docx")
	assert.Equal(t, "file-1", b.RemoteFileID)
	assert.Equal(t, "green", b.State.Color())

	assert.Equal(t, "file-1", r.MarkUnbound("Lastenheft.docx"))
	b, _ = r.Get("Lastenheft.docx")
	assert.Empty(t, b.RemoteFileID)
	assert.Equal(t, StateUnbound, b.State)
	assert.Equal(t, "lightgray", b.State.Color())

	assert.Empty(t, r.MarkUnbound("Lastenheft.docx"))
	assert.Empty(t, r.MarkUnbound("missing.txt"))
}

func TestRegistry_StagedBytesSurviveBinding(t *testing.T) {
	r := NewRegistry()
	r.Stage("Anlage.pdf", []byte("a"))
	r.MarkBound("Anlage.pdf", "file-9")
	r.MarkUnbound("Anlage.pdf")

	assert.Equal(t, []byte("a"), r.Staged("Anlage.pdf"))
}
