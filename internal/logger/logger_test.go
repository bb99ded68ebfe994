package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeLineAndColumn(t *testing.T) {
	contents := "import os\nx = 1\n\ny = 2\n"

	line, column, lineStart, lineEnd := computeLineAndColumn(contents, 0)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, column)
	assert.Equal(t, "import os", contents[lineStart:lineEnd])

	// Offset of "1" on the second line
	line, column, lineStart, lineEnd = computeLineAndColumn(contents, 14)
	assert.Equal(t, 1, line)
	assert.Equal(t, 4, column)
	assert.Equal(t, "x = 1", contents[lineStart:lineEnd])

	// Offset of "y" after the blank line
	line, _, lineStart, lineEnd = computeLineAndColumn(contents, 17)
	assert.Equal(t, 3, line)
	assert.Equal(t, "y = 2", contents[lineStart:lineEnd])
}

func TestDeferLogSortsByLocation(t *testing.T) {
	log := NewDeferLog()
	log.AddMsg(Msg{Kind: Error, Text: "second", Location: &MsgLocation{File: "a.py", Line: 9}})
	log.AddMsg(Msg{Kind: Warning, Text: "third", Location: &MsgLocation{File: "b.py", Line: 1}})
	log.AddMsg(Msg{Kind: Error, Text: "first", Location: &MsgLocation{File: "a.py", Line: 2}})

	msgs := log.Done()
	assert.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
	assert.True(t, log.HasErrors())
}

func TestSyntheticLocHasNoLocation(t *testing.T) {
	source := &Source{PrettyPath: "mod.py", Contents: "pass\n"}
	assert.Nil(t, LocationOrNil(source, Range{Loc: SyntheticLoc}))
	assert.NotNil(t, LocationOrNil(source, Range{Loc: Loc{Start: 0}}))
}
