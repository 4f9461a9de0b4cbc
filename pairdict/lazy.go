package pairdict

import (
	"log"
	"sync"

	"github.com/pkg/errors"
)

// Lazy loads a default dictionary the first time it is needed
// and returns the same dictionary afterwards.
// It is owned by the caller; nothing in the inversion code keeps one.
type Lazy struct {
	// Load produces the dictionary. It is called at most once.
	Load func() (*Dict, error)

	once sync.Once
	dict *Dict
	err  error
}

// File returns a Lazy which loads the dictionary from a file with LoadExt.
func File(fname string) *Lazy {
	return &Lazy{Load: func() (*Dict, error) {
		log.Println("load paired dictionary:", fname)
		return LoadExt(fname)
	}}
}

// Dict returns the dictionary, loading it if necessary.
// A failed load is remembered and returned on every call.
func (l *Lazy) Dict() (*Dict, error) {
	l.once.Do(func() {
		if l.Load == nil {
			l.err = ErrMissing
			return
		}
		d, err := l.Load()
		if err != nil {
			l.err = errors.Wrap(ErrMissing, err.Error())
			return
		}
		if err := d.Validate(); err != nil {
			l.err = err
			return
		}
		l.dict = d
	})
	return l.dict, l.err
}
