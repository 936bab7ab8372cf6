package wire

// KernelInfoRequest asks the kernel to describe itself.
type KernelInfoRequest struct{}

func (*KernelInfoRequest) MessageType() string { return TypeKernelInfoRequest }

// LanguageInfo describes the language the kernel embeds.
type LanguageInfo struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	FileExtension     string `json:"file_extension"`
	Mimetype          string `json:"mimetype"`
	PygmentsLexer     string `json:"pygments_lexer,omitempty"`
	CodemirrorMode    string `json:"codemirror_mode,omitempty"`
	NbconvertExporter string `json:"nbconvert_exporter,omitempty"`
}

// HelpLink is one entry in the front end's help menu.
type HelpLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// KernelInfoReply describes the kernel and its protocol level.
type KernelInfoReply struct {
	Status                string       `json:"status"`
	ProtocolVersion       string       `json:"protocol_version"`
	Implementation        string       `json:"implementation"`
	ImplementationVersion string       `json:"implementation_version"`
	Banner                string       `json:"banner"`
	Debugger              bool         `json:"debugger"`
	LanguageInfo          LanguageInfo `json:"language_info"`
	HelpLinks             []HelpLink   `json:"help_links"`
}

func (*KernelInfoReply) MessageType() string { return TypeKernelInfoReply }
