package models

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mdp/qrterminal/v3"
)

/*
WriteFriendQRCode renders the bot's add-friend URL as a terminal QR code into
<logDir>/qr/friend-qr.log, so operators can scan it from the server.

Parameters:
- logDir: Base log directory.
- friendURL: LINE add-friend link; nothing is written when empty.

Returns:
- string: Path of the written file, empty when skipped.
- error: If the file cannot be written.
*/
func WriteFriendQRCode(logger *slog.Logger, logDir, friendURL string) (string, error) {
	const function = "WriteFriendQRCode"
	if friendURL == "" {
		return "", nil
	}

	qrDir := filepath.Join(logDir, "qr")
	if err := os.MkdirAll(qrDir, 0755); err != nil {
		logger.Error("Failed to create logs directory", "function", function, "error", err)
		return "", err
	}

	qrLogPath := filepath.Join(qrDir, "friend-qr.log")
	qrLogFile, err := os.OpenFile(qrLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		logger.Error("Failed to open QR log file", "function", function, "error", err)
		return "", err
	}
	defer qrLogFile.Close()

	fmt.Fprintf(qrLogFile, "\n=== Add friend - %s - %s ===\n", friendURL, time.Now().UTC().Format(time.RFC3339))
	qrterminal.GenerateHalfBlock(friendURL, qrterminal.L, qrLogFile)

	logger.Info("QR code generated", "function", function, "qr_file", qrLogPath)
	return qrLogPath, nil
}
