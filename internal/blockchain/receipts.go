package blockchain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DecodeEvents returns every occurrence of the named event emitted by the
// contract in the receipt, indexed and non-indexed fields merged by name.
func DecodeEvents(parsed *abi.ABI, contract common.Address, name string, receipt *types.Receipt) ([]map[string]interface{}, error) {
	event, ok := parsed.Events[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event %s", ErrDecodeFailure, name)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: no receipt", ErrDecodeFailure)
	}

	indexed := indexedInputs(event)

	var decoded []map[string]interface{}
	for _, log := range receipt.Logs {
		if log == nil || log.Address != contract || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		fields, err := decodeLog(parsed, name, indexed, log)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, fields)
	}

	if len(decoded) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, name)
	}
	return decoded, nil
}

func decodeLog(parsed *abi.ABI, name string, indexed abi.Arguments, log *types.Log) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if len(log.Data) > 0 {
		if err := parsed.UnpackIntoMap(fields, name, log.Data); err != nil {
			return nil, fmt.Errorf("%w: %s data: %v", ErrDecodeFailure, name, err)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("%w: %s topics: %v", ErrDecodeFailure, name, err)
	}
	return fields, nil
}

// DecodeLog decodes a single log of any event declared in the ABI and returns
// the event name with its fields.
func DecodeLog(parsed *abi.ABI, log types.Log) (string, map[string]interface{}, error) {
	if len(log.Topics) == 0 {
		return "", nil, fmt.Errorf("%w: anonymous log", ErrDecodeFailure)
	}
	event, err := parsed.EventByID(log.Topics[0])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	fields, err := decodeLog(parsed, event.Name, indexedInputs(*event), &log)
	if err != nil {
		return "", nil, err
	}
	return event.Name, fields, nil
}

func indexedInputs(event abi.Event) abi.Arguments {
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
