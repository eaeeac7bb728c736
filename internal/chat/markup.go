package chat

type Button struct {
	Text string
	Data string
	URL  string
}

// Markup is either an inline menu, a persistent reply keyboard, or a request to
// remove the reply keyboard. The zero value means no markup.
type Markup struct {
	Inline      [][]Button
	Reply       [][]string
	RemoveReply bool
}

func (m *Markup) Empty() bool {
	return m == nil || (len(m.Inline) == 0 && len(m.Reply) == 0 && !m.RemoveReply)
}

func InlineMenu(rows ...[]Button) *Markup {
	return &Markup{Inline: rows}
}

func ReplyKeyboard(rows ...[]string) *Markup {
	return &Markup{Reply: rows}
}

// RemoveKeyboard hides a reply keyboard left over from an earlier session.
func RemoveKeyboard() *Markup {
	return &Markup{RemoveReply: true}
}
