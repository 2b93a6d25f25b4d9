package whatsapp

// TemplateCall records one SendTemplate invocation on the stub.
type TemplateCall struct {
	To       string
	Template string
	Lang     string
	Params   []string
}

// SenderStub is a Sender double for tests. Recipients listed in FailFor get
// a failed delivery with the mapped detail; everyone else succeeds.
type SenderStub struct {
	FailFor map[string]string
	Calls   []TemplateCall
}

func (s *SenderStub) SendTemplate(to, template, lang string, params []string) (bool, string) {
	s.Calls = append(s.Calls, TemplateCall{To: to, Template: template, Lang: lang, Params: params})

	if detail, ok := s.FailFor[to]; ok {
		return false, detail
	}
	return true, ""
}
