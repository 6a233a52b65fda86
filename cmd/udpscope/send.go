package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/udpscope/internal/config"
)

var (
	// errNoPayload is returned when neither a message nor --file is given.
	errNoPayload = errors.New("nothing to send: pass a message or --file")

	// errConflictingPayload is returned when a message and --file are both given.
	errConflictingPayload = errors.New("pass either a message or --file, not both")

	// errInvalidJSON is returned when --json-value is set and the message is not JSON.
	errInvalidJSON = errors.New("message is not valid JSON")

	// errInvalidHex is returned when --hex is set and the message is not hex.
	errInvalidHex = errors.New("message is not valid hex")

	// errPayloadTooLarge is returned when a payload cannot fit in one datagram.
	errPayloadTooLarge = errors.New("payload exceeds the maximum datagram size")
)

// maxPayloadFileSize is the largest payload read from a file.
const maxPayloadFileSize = config.MaxDatagramSize

// payloadMode says how a message argument becomes datagram bytes.
type payloadMode int

const (
	payloadText payloadMode = iota
	payloadJSON
	payloadHex
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one datagram",
		Long: `Send transmits a single UDP datagram and exits.

The message is sent as UTF-8 text unless --json-value or --hex is given.
With --file the file content is sent unchanged.

Examples:
  # Send text
  udpscope send "hello" --to 127.0.0.1:8888

  # Send a JSON document (validated and compacted before sending)
  udpscope send --json-value '{"type": "ping", "seq": 1}' --to 127.0.0.1:8888

  # Send raw bytes written as hex
  udpscope send --hex "de ad be ef" --to 127.0.0.1:8888

  # Send the content of a file
  udpscope send --file payload.bin --to 127.0.0.1:8888`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSendCmd,
	}

	addTargetFlags(cmd)
	cmd.Flags().Bool("json-value", false, "Validate the message as JSON and send it compacted")
	cmd.Flags().Bool("hex", false, "Decode the message from hex before sending")
	cmd.Flags().StringP("file", "f", "", `Send the content of this file ("-" reads standard input)`)
	cmd.MarkFlagsMutuallyExclusive("json-value", "hex")

	return cmd
}

func runSendCmd(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	payload, err := payloadFromFlags(cmd, args)
	if err != nil {
		return err
	}

	return runSend(commandContext(cmd), e, payload)
}

// payloadFromFlags turns the message argument or --file into bytes.
func payloadFromFlags(cmd *cobra.Command, args []string) ([]byte, error) {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}
	asJSON, err := cmd.Flags().GetBool("json-value")
	if err != nil {
		return nil, err
	}
	asHex, err := cmd.Flags().GetBool("hex")
	if err != nil {
		return nil, err
	}

	if file != "" {
		if len(args) > 0 {
			return nil, errConflictingPayload
		}
		return readPayload(file, cmd.InOrStdin())
	}

	if len(args) == 0 {
		return nil, errNoPayload
	}

	mode := payloadText
	switch {
	case asJSON:
		mode = payloadJSON
	case asHex:
		mode = payloadHex
	}
	return encodePayload(args[0], mode)
}

// encodePayload converts a message into datagram bytes.
func encodePayload(message string, mode payloadMode) ([]byte, error) {
	switch mode {
	case payloadJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(message)); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidJSON, err)
		}
		return buf.Bytes(), nil
	case payloadHex:
		cleaned := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(message)
		cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "0x"), "0X")
		data, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidHex, err)
		}
		return data, nil
	default:
		return []byte(message), nil
	}
}

// runSend sends payload to the configured target and reports the byte count.
func runSend(ctx context.Context, e *env, payload []byte) error {
	tr := e.transceiver()
	defer func() {
		if err := tr.Stop(); err != nil {
			e.logger.Warn("failed to close socket", "error", err)
		}
	}()

	n, err := tr.Send(ctx, payload, e.cfg.TargetAddress)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Sent %d bytes to %s\n", n, e.cfg.TargetAddress)
	return nil
}
