package livereload

import (
	"bytes"
	"net/http"
	"strings"
)

// ScriptPath serves the client script.
const ScriptPath = "/livereload.js"

// Script is the browser side: reconnecting EventSource that reloads on signal.
const Script = `(() => {
  if (window.__MARKSITE_LR__) return;
  window.__MARKSITE_LR__ = true;
  function connect() {
    const es = new EventSource('` + Path + `');
    es.onmessage = (e) => {
      if (e.data === '` + ReloadSignal + `') {
        console.log('[marksite] rebuilt, reloading');
        location.reload();
      }
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

// ScriptHandler serves Script.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(Script))
	})
}

const scriptTag = `<script async src="` + ScriptPath + `"></script>`

// Inject wraps next so HTML responses get the client script before </body>.
func Inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		isHTMLPage := path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html") || !strings.Contains(path[strings.LastIndex(path, "/")+1:], ".")
		if !isHTMLPage || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		injector := newInjector(w)
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// injector buffers HTML responses (up to maxSize) so the script tag can be
// inserted; anything else or anything larger passes straight through.
type injector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	maxSize       int
}

func newInjector(w http.ResponseWriter) *injector {
	return &injector{ResponseWriter: w, statusCode: http.StatusOK, maxSize: 512 * 1024}
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.headerWritten && !l.passthrough && l.buffer == nil {
		contentType := l.Header().Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		if !strings.Contains(contentType, "text/html") {
			l.passthrough = true
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
			return l.ResponseWriter.Write(data)
		}
		l.buffer = make([]byte, 0, 64*1024)
	}
	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}
	if len(l.buffer)+len(data) > l.maxSize {
		l.passthrough = true
		l.Header().Del("Content-Length")
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
			return 0, err
		}
		return l.ResponseWriter.Write(data)
	}
	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *injector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}
	out := l.buffer
	if i := bytes.LastIndex(bytes.ToLower(out), []byte("</body>")); i >= 0 {
		out = append(append(append([]byte{}, out[:i]...), scriptTag...), out[i:]...)
	} else {
		out = append(out, scriptTag...)
	}
	l.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(out)
}
