package wshandler

import (
	"encoding/json"
	"fmt"

	"github.com/Temutjin2k/droply/internal/adapter/http/ws/dto"
	ws "github.com/Temutjin2k/droply/pkg/wsHub"
)

// errorResponse reports a client mistake without dropping the connection.
func errorResponse(conn Sender, message any) error {
	select {
	case <-conn.Done():
		return ws.ErrConnClosed
	default:
	}
	_ = conn.Send(
		map[string]any{
			"type":  dto.TypeError,
			"error": message,
		})
	return nil
}

func failedValidationResponse(conn Sender, errors map[string]string) error {
	return errorResponse(conn, errors)
}

// decode converts a raw websocket message into a typed payload.
func decode(msg map[string]any, dst any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}
