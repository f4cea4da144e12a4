package script

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// stepDTO mirrors the keys a step object may carry.
type stepDTO struct {
	Send         map[string]any `mapstructure:"send"`
	SendRaw      string         `mapstructure:"sendRaw"`
	Recv         map[string]any `mapstructure:"recv"`
	Message      string         `mapstructure:"message"`
	WaitForPause any            `mapstructure:"waitForPause"`
}

// ParseStep classifies one decoded step object.
func ParseStep(entry any) (domain.Step, error) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return nil, unknown(entry)
	}

	var dto stepDTO
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &dto,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(obj); err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", domain.ErrUnknownStep, render(entry), err)
	}

	present := make(map[string]bool, len(obj))
	for k := range obj {
		present[k] = true
	}

	basic := present[domain.StepKeySend] || present[domain.StepKeySendRaw] ||
		present[domain.StepKeyRecv] || present[domain.StepKeyMessage]

	switch {
	case present[domain.StepKeyWaitForPause] && !basic:
		return domain.WaitForPause{}, nil
	case basic && !present[domain.StepKeyWaitForPause]:
		step := domain.BasicMessage{
			SendRaw: dto.SendRaw,
			Note:    dto.Message,
		}
		if present[domain.StepKeySend] {
			step.Send = domain.Message(nonNil(dto.Send))
		}
		if present[domain.StepKeyRecv] {
			step.Expect = domain.Message(nonNil(dto.Recv))
		}
		return step, nil
	}
	return nil, unknown(entry)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func unknown(entry any) error {
	return fmt.Errorf("%w: %s", domain.ErrUnknownStep, render(entry))
}

func render(entry any) string {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("%v", entry)
	}
	return string(data)
}
