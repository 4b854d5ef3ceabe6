package client

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"caption-llm/internal/domain"
)

// Tone es un estilo de caption seleccionable.
type Tone string

const (
	ToneProfessional Tone = "Professional"
	ToneFun          Tone = "Fun"
	TonePoetic       Tone = "Poetic"
	ToneCasual       Tone = "Casual"
)

// Tones lista los tonos en el orden en que se ofrecen.
var Tones = []Tone{ToneProfessional, ToneFun, TonePoetic, ToneCasual}

const (
	DefaultMaxWords = 20
	MinWords        = 1
	MaxWords        = 50

	maxImageFileBytes = 20 << 20
)

var (
	ErrNoImageSource = errors.New("no image url or file selected")
	ErrNotAnImage    = errors.New("selected file is not an image")
)

// CaptionForm guarda las preferencias del usuario. URL y archivo son excluyentes.
type CaptionForm struct {
	imageURL  string
	imageFile string
	maxWords  int
	tones     []Tone
}

func NewCaptionForm() *CaptionForm {
	return &CaptionForm{maxWords: DefaultMaxWords}
}

// SetImageURL fija la URL y descarta el archivo seleccionado.
func (f *CaptionForm) SetImageURL(url string) {
	f.imageURL = strings.TrimSpace(url)
	if f.imageURL != "" {
		f.imageFile = ""
	}
}

// SetImageFile fija el archivo y descarta la URL.
func (f *CaptionForm) SetImageFile(path string) {
	f.imageFile = strings.TrimSpace(path)
	if f.imageFile != "" {
		f.imageURL = ""
	}
}

func (f *CaptionForm) ClearImage() {
	f.imageURL = ""
	f.imageFile = ""
}

func (f *CaptionForm) SetMaxWords(n int) error {
	if n < MinWords || n > MaxWords {
		return fmt.Errorf("max words must be between %d and %d", MinWords, MaxWords)
	}
	f.maxWords = n
	return nil
}

func (f *CaptionForm) MaxWords() int {
	return f.maxWords
}

// SetTones acepta nombres sin distinguir mayúsculas y descarta duplicados.
func (f *CaptionForm) SetTones(names []string) error {
	seen := make(map[Tone]bool, len(names))
	var out []Tone
	for _, name := range names {
		tone, ok := parseTone(name)
		if !ok {
			return fmt.Errorf("unknown tone %q", name)
		}
		if seen[tone] {
			continue
		}
		seen[tone] = true
		out = append(out, tone)
	}
	f.tones = out
	return nil
}

func parseTone(name string) (Tone, bool) {
	for _, t := range Tones {
		if strings.EqualFold(strings.TrimSpace(name), string(t)) {
			return t, true
		}
	}
	return "", false
}

// Reset vuelve el formulario a sus valores por defecto.
func (f *CaptionForm) Reset() {
	*f = CaptionForm{maxWords: DefaultMaxWords}
}

// Prompt arma la instrucción de usuario a partir de palabras y tonos.
func (f *CaptionForm) Prompt() string {
	toneSet := "default"
	if len(f.tones) > 0 {
		names := make([]string, len(f.tones))
		for i, t := range f.tones {
			names[i] = string(t)
		}
		toneSet = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Describe this image in %d words or less. Use a %s tone.", f.maxWords, toneSet)
}

func (f *CaptionForm) HasImage() bool {
	return f.imageURL != "" || f.imageFile != ""
}

// ImageSource devuelve la URL tal cual o el archivo como data URI.
func (f *CaptionForm) ImageSource() (string, error) {
	if f.imageURL != "" {
		return f.imageURL, nil
	}
	if f.imageFile == "" {
		return "", ErrNoImageSource
	}

	info, err := os.Stat(f.imageFile)
	if err != nil {
		return "", fmt.Errorf("stat image file: %w", err)
	}
	if info.Size() > maxImageFileBytes {
		return "", fmt.Errorf("image file exceeds %d MB", maxImageFileBytes>>20)
	}
	data, err := os.ReadFile(f.imageFile)
	if err != nil {
		return "", fmt.Errorf("read image file: %w", err)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotAnImage
	}
	return "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// BuildInput arma el ChatInput de un solo mensaje: texto + imagen.
func (f *CaptionForm) BuildInput() (domain.ChatInput, error) {
	source, err := f.ImageSource()
	if err != nil {
		return nil, err
	}
	return domain.ChatInput{{
		Role: "user",
		Content: []domain.ContentPart{
			domain.TextPart{Text: f.Prompt()},
			domain.ImagePart{URL: source},
		},
	}}, nil
}
