package client

import "errors"

// Textos que se muestran al usuario.
const (
	MsgNoImageSource = "Please provide an image URL or upload an image file"
	MsgRateLimited   = "Rate limit exceeded. Please try again later."
	MsgNotAnImage    = "The selected file is not an image"
)

// UserMessage traduce los errores conocidos del cliente al texto de la UI.
// Los errores del servidor ya traen su mensaje y se devuelven tal cual.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoImageSource):
		return MsgNoImageSource
	case errors.Is(err, ErrClientRateLimited):
		return MsgRateLimited
	case errors.Is(err, ErrNotAnImage):
		return MsgNotAnImage
	default:
		return err.Error()
	}
}
