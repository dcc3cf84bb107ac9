package i18n

import gi18n "github.com/nicksnyder/go-i18n/v2/i18n"

// Notices renders the support texts shown to mobile users in one language.
type Notices struct {
	loc *gi18n.Localizer
}

func NewNotices(lang string) (*Notices, error) {
	loc, err := Init(lang)
	if err != nil {
		return nil, err
	}
	return &Notices{loc: loc}, nil
}

func (n *Notices) text(id string, data map[string]any) string {
	msg, err := n.loc.Localize(&gi18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}

func (n *Notices) TransferNotice() string {
	return n.text("transfer_notice", nil)
}

func (n *Notices) UnavailableNotice() string {
	return n.text("unavailable_notice", nil)
}

func (n *Notices) Greeting(userName string) string {
	if userName == "" {
		return n.text("greeting", nil)
	}
	return n.text("greeting_named", map[string]any{"Name": userName})
}

func (n *Notices) PushTitle() string {
	return n.text("push_title", nil)
}
