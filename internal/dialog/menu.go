package dialog

import "kinobot/internal/chat"

// Admin reply-keyboard labels. Incoming text is matched against them exactly.
const (
	LabelAddMovie      = "🎬 Kino qo‘shish"
	LabelAddPart       = "🎞 Qism qo‘shish"
	LabelDelete        = "🗑 Kino o‘chirish"
	LabelDeletePart    = "✂️ Qism o‘chirish"
	LabelAddChannel    = "➕ Kanal qo‘shish"
	LabelRemoveChannel = "➖ Kanal o‘chirish"
	LabelStats         = "📊 Statistika"
	LabelCancel        = "❌ Bekor qilish"
)

var labelModes = map[string]Mode{
	LabelAddMovie:      ModeAddMovie,
	LabelAddPart:       ModeAddPart,
	LabelDelete:        ModeDelete,
	LabelDeletePart:    ModeDeletePart,
	LabelAddChannel:    ModeAddChannel,
	LabelRemoveChannel: ModeRemoveChannel,
}

func ModeForLabel(text string) (Mode, bool) {
	m, ok := labelModes[text]
	return m, ok
}

func AdminKeyboard() *chat.Markup {
	return chat.ReplyKeyboard(
		[]string{LabelAddMovie, LabelAddPart},
		[]string{LabelDelete, LabelDeletePart},
		[]string{LabelAddChannel, LabelRemoveChannel},
		[]string{LabelStats, LabelCancel},
	)
}
