package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var (
	// ErrOutcomeMissing means the transaction was mined but the expected event was not emitted.
	ErrOutcomeMissing = errors.New("expected event not found in transaction logs")
	// ErrTransactionReverted means the transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// DecodedEvent is a log decoded against a contract interface. Args follow the event's
// declared input order, indexed and non-indexed alike.
type DecodedEvent struct {
	Name string
	Args []any
	Log  *types.Log
}

// Decoder decodes the logs emitted by one contract.
type Decoder struct {
	abi     abi.ABI
	address common.Address
}

func NewDecoder(contractABI abi.ABI, address common.Address) *Decoder {
	return &Decoder{abi: contractABI, address: address}
}

// DecodeLog returns ok=false for logs that belong to another contract or to an event the
// interface does not declare. A declared event whose payload does not unpack is an error.
func (d *Decoder) DecodeLog(log *types.Log) (*DecodedEvent, bool, error) {
	if log == nil || len(log.Topics) == 0 {
		return nil, false, nil
	}
	if d.address != (common.Address{}) && log.Address != d.address {
		return nil, false, nil
	}

	event, err := d.abi.EventByID(log.Topics[0])
	if err != nil {
		return nil, false, nil
	}

	values := make(map[string]any, len(event.Inputs))
	if len(log.Data) > 0 {
		if err := event.Inputs.UnpackIntoMap(values, log.Data); err != nil {
			return nil, false, errors.Wrapf(err, "failed to unpack %s log data", event.Name)
		}
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
			return nil, false, errors.Wrapf(err, "failed to parse %s log topics", event.Name)
		}
	}

	args := make([]any, len(event.Inputs))
	for i, input := range event.Inputs {
		v, ok := values[input.Name]
		if !ok {
			return nil, false, fmt.Errorf("%s log is missing argument %q", event.Name, input.Name)
		}
		args[i] = v
	}

	return &DecodedEvent{Name: event.Name, Args: args, Log: log}, true, nil
}

// ScanOutcome returns the argument at argIndex of the first log decoding to eventName.
// Logs that do not decode count as absent.
func ScanOutcome(d *Decoder, logs []*types.Log, eventName string, argIndex int) (string, error) {
	for _, log := range logs {
		event, ok, err := d.DecodeLog(log)
		if err != nil || !ok || event.Name != eventName {
			continue
		}
		if argIndex >= len(event.Args) {
			return "", fmt.Errorf("%s has no argument at index %d", eventName, argIndex)
		}

		id := formatArg(event.Args[argIndex])
		if id == "" {
			return "", errors.Wrapf(ErrOutcomeMissing, "%s emitted an empty id", eventName)
		}
		return id, nil
	}

	return "", errors.Wrapf(ErrOutcomeMissing, "no %s event", eventName)
}

func formatArg(v any) string {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return ""
		}
		return t.String()
	case common.Address:
		return t.Hex()
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// PackLog builds the log a contract would emit for the event. Args follow the declared input order.
func PackLog(contractABI abi.ABI, address common.Address, eventName string, args ...any) (*types.Log, error) {
	event, ok := contractABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", eventName)
	}
	if len(args) != len(event.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", eventName, len(event.Inputs), len(args))
	}

	topics := []common.Hash{event.ID}
	var data []any
	for i, input := range event.Inputs {
		if input.Indexed {
			t, err := abi.MakeTopics([]any{args[i]})
			if err != nil {
				return nil, err
			}
			topics = append(topics, t[0][0])
			continue
		}
		data = append(data, args[i])
	}

	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", eventName)
	}

	return &types.Log{Address: address, Topics: topics, Data: packed}, nil
}
