package vision

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const keyEsc = 27

// Window shows rendered frames in a HighGUI window.
type Window struct {
	win       *gocv.Window
	closeOnce sync.Once
}

// NewWindow opens a named preview window.
func NewWindow(name string) *Window {
	return &Window{win: gocv.NewWindow(name)}
}

// Show displays img and polls the keyboard once. It reports true when the
// user asked to quit with 'q' or ESC.
func (w *Window) Show(img *image.RGBA) (quit bool, err error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, err
	}
	defer mat.Close()

	w.win.IMShow(mat)
	return isQuitKey(w.win.WaitKey(1)), nil
}

// Close destroys the window.
func (w *Window) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.win.Close() })
	return err
}

func isQuitKey(key int) bool {
	return key == 'q' || key == 'Q' || key == keyEsc
}
