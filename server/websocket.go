package server

import (
	"bytes"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
)

// Possible reply formats on a websocket connection.
const (
	FormatFrame = "frame"
	FormatLatex = "latex"
	FormatJSON  = "json"
)

// Control is a text message sent by a websocket client to change how
// subsequent images are replied to.
type Control struct {
	Format string `json:"format"`
}

type wsError struct {
	Error string `json:"error"`
}

// handleWebsocket encodes every binary message received as an image. Replies
// are binary frames by default (see pixcode.Result.WriteTo), or text when the
// client has selected the latex or json format. Failures are reported as a
// JSON text message and do not close the connection.
func (s *Server) handleWebsocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ws.SetReadLimit(s.opts.MaxUploadBytes)

	format := FormatFrame
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.opts.Logger.Info("websocket client disconnected", "err", err)
			}
			return nil
		}

		switch msgType {
		case websocket.TextMessage:
			var ctl Control
			if err := json.Unmarshal(data, &ctl); err != nil {
				s.writeError(ws, "invalid control message: "+err.Error())
				continue
			}
			switch ctl.Format {
			case FormatFrame, FormatLatex, FormatJSON:
				format = ctl.Format
			default:
				s.writeError(ws, "unknown format: "+ctl.Format)
			}
			continue
		case websocket.BinaryMessage:
		default:
			continue
		}

		res, err := s.analyze(data)
		if err != nil {
			s.writeError(ws, err.Error())
			continue
		}

		switch format {
		case FormatLatex:
			err = ws.WriteMessage(websocket.TextMessage, []byte(res.String()))
		case FormatJSON:
			var out []byte
			out, err = json.Marshal(response{Result: res, Sequence: res.String()})
			if err == nil {
				err = ws.WriteMessage(websocket.TextMessage, out)
			}
		default:
			var buf bytes.Buffer
			if _, err = res.WriteTo(&buf); err != nil {
				s.writeError(ws, err.Error())
				continue
			}
			err = ws.WriteMessage(websocket.BinaryMessage, buf.Bytes())
		}
		if err != nil {
			s.opts.Logger.Warn("websocket write failed", "err", err)
			return nil
		}
	}
}

func (s *Server) writeError(ws *websocket.Conn, msg string) {
	data, _ := json.Marshal(wsError{Error: msg})
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		s.opts.Logger.Warn("websocket write failed", "err", err)
	}
}
