package parse

import (
	"fmt"
	"io"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

type lineDecoder func(line []byte) (model.Message, bool)

func decoderFor(src model.Source) (lineDecoder, error) {
	switch src {
	case model.SourceClaude:
		return decodeClaude, nil
	case model.SourceCodex:
		return decodeCodex, nil
	default:
		return nil, fmt.Errorf("decoder for %q: %w", src, model.ErrUnknownSource)
	}
}

// Decode streams the messages of one session log in line order. Lines that
// do not decode are skipped; only a failing reader is reported.
func Decode(src model.Source, r io.Reader, fn func(model.Message)) error {
	decode, err := decoderFor(src)
	if err != nil {
		return err
	}
	err = eachLine(r, func(lineNo int, line []byte) bool {
		msg, ok := decode(line)
		if ok {
			msg.Line = lineNo
			fn(msg)
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("read session: %w: %v", model.ErrMalformed, err)
	}
	return nil
}

// ReadSession materializes a whole session file.
func ReadSession(src model.Source, path string) ([]model.Message, error) {
	if _, err := decoderFor(src); err != nil {
		return nil, err
	}
	f, err := openSession(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msgs := []model.Message{}
	if err := Decode(src, f, func(m model.Message) { msgs = append(msgs, m) }); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return msgs, nil
}
