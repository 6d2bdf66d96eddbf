package lobby

import "github.com/fuzzpoint/psoserver/internal/version"

// QuestFile is one version-specific binary+data pair for a quest (spec.md
// §6 "Quest index").
type QuestFile struct {
	Version  int
	BinName  string
	BinData  []byte
	DatName  string
	DatData  []byte
}

// Quest is an installed quest overlay for a game lobby (spec.md §4.5
// "Quest loading").
type Quest struct {
	Name     string
	Category string
	Files    []QuestFile
	Joinable bool
}

// FileFor returns the QuestFile matching ver, or the nearest compatible
// substitute (spec.md §4.5: "an Episode III client may receive a v3
// quest variant"), or nil if none is available.
func (q *Quest) FileFor(ver int) *QuestFile {
	for i := range q.Files {
		if q.Files[i].Version == ver {
			return &q.Files[i]
		}
	}
	if version.Version(ver).IsEp3() {
		for i := range q.Files {
			if q.Files[i].Version == int(version.GC) {
				return &q.Files[i]
			}
		}
	}
	return nil
}

// SetQuest installs quest on the game lobby l, setting the
// QUEST_IN_PROGRESS or JOINABLE_QUEST_IN_PROGRESS flag per quest.Joinable
// (spec.md §4.5 "set_lobby_quest"). Transmitting the files to clients is
// a dispatch-layer concern (the A6/A7/44/13 file-transfer sub-protocol);
// this only installs the server-side state the transfer reads from.
func (l *Lobby) SetQuest(quest *Quest) {
	if l.Game == nil {
		return
	}
	l.Game.Quest = quest
	if quest.Joinable {
		l.Game.JoinableQuestInProgress = true
		l.Game.QuestInProgress = false
	} else {
		l.Game.QuestInProgress = true
		l.Game.JoinableQuestInProgress = false
	}
}

// ClearQuest removes the installed quest and its in-progress flags.
func (l *Lobby) ClearQuest() {
	if l.Game == nil {
		return
	}
	l.Game.Quest = nil
	l.Game.QuestInProgress = false
	l.Game.JoinableQuestInProgress = false
}
