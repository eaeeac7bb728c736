package bot

import (
	"fmt"
	"strings"

	"kinobot/internal/catalog"
	"kinobot/internal/chat"
)

// PartMenu lists the parts of entry in catalog order, one button per row.
func PartMenu(entry catalog.Entry) *chat.Markup {
	rows := make([][]chat.Button, 0, len(entry.Parts))
	for _, p := range entry.Parts {
		rows = append(rows, []chat.Button{{Text: p.Label, Data: PartPrefix + entry.Code + ":" + p.Label}})
	}
	return chat.InlineMenu(rows...)
}

// JoinMarkup links every public channel in missing and ends with the re-check
// button. Private channels given by numeric id have no public link.
func JoinMarkup(missing []string) *chat.Markup {
	rows := make([][]chat.Button, 0, len(missing)+1)
	for _, ch := range missing {
		url := ChannelURL(ch)
		if url == "" {
			continue
		}
		rows = append(rows, []chat.Button{{Text: fmt.Sprintf(btnJoinChannel, ch), URL: url}})
	}
	rows = append(rows, []chat.Button{{Text: btnCheckSub, Data: CheckSubData}})
	return chat.InlineMenu(rows...)
}

func ChannelURL(channel string) string {
	if !strings.HasPrefix(channel, "@") {
		return ""
	}
	return "https://t.me/" + strings.TrimPrefix(channel, "@")
}
