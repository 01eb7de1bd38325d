package models

// EditRequest is what the remote edit capability receives for one image.
type EditRequest struct {
	Data        []byte
	MIMEType    string
	Instruction string
}

// EditedImage is the output of the remote edit capability.
type EditedImage struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

type ResultEntry struct {
	Filename string      `json:"filename"`
	Image    EditedImage `json:"image"`
}

// ProcessingResult maps original filenames to edited images, remembering
// insertion order. It is not safe for concurrent use.
type ProcessingResult struct {
	order []string
	items map[string]EditedImage
}

func NewProcessingResult() *ProcessingResult {
	return &ProcessingResult{items: make(map[string]EditedImage)}
}

func (r *ProcessingResult) Set(filename string, img EditedImage) {
	if _, exists := r.items[filename]; !exists {
		r.order = append(r.order, filename)
	}
	r.items[filename] = img
}

func (r *ProcessingResult) Get(filename string) (EditedImage, bool) {
	img, ok := r.items[filename]
	return img, ok
}

func (r *ProcessingResult) Len() int {
	return len(r.order)
}

// Entries returns a copy of the map in insertion order.
func (r *ProcessingResult) Entries() []ResultEntry {
	entries := make([]ResultEntry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, ResultEntry{Filename: name, Image: r.items[name]})
	}
	return entries
}

func (r *ProcessingResult) Reset() {
	r.order = nil
	r.items = make(map[string]EditedImage)
}
