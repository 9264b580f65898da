package thread

import (
	"context"
	"encoding/json"

	"github.com/samber/lo"
	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/storage"
)

// Mapper converts persistence models into wire records, resolving attachment
// URLs through the presigner when only an object key is stored.
type Mapper struct {
	presigner storage.Presigner
}

func NewMapper(presigner storage.Presigner) *Mapper {
	return &Mapper{presigner: presigner}
}

func (m *Mapper) ThreadToWire(ctx context.Context, t *entity.Thread) (*Thread, error) {
	steps := make([]*Step, 0, len(t.Steps))
	for i := range t.Steps {
		step, err := m.StepToWire(ctx, &t.Steps[i])
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	var participant *Participant
	if t.Participant != nil {
		participant = participantToWire(t.Participant)
	}

	return &Thread{
		Id:            t.ID,
		Name:          t.Name,
		Metadata:      t.Metadata,
		Environment:   t.Environment,
		Tags:          t.Tags,
		CreatedAt:     t.CreatedAt,
		ParticipantId: t.ParticipantID,
		Participant:   participant,
		Steps:         steps,
	}, nil
}

func (m *Mapper) StepToWire(ctx context.Context, s *entity.Step) (*Step, error) {
	generation, err := deserializeGeneration(s.Generation)
	if err != nil {
		return nil, err
	}

	attachments, err := m.deserializeAttachments(ctx, s)
	if err != nil {
		return nil, err
	}

	return &Step{
		Id:          s.ID,
		ThreadId:    s.ThreadID,
		ParentId:    s.ParentID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		CreatedAt:   s.CreatedAt,
		Type:        string(s.Type),
		Error:       s.Error,
		Input:       s.Input,
		Output:      s.Output,
		Metadata:    s.Metadata,
		Tags:        s.Tags,
		Name:        s.Name,
		Scores:      lo.Map(s.Scores, func(score entity.Score, _ int) *Score { return scoreToWire(&score) }),
		Generation:  generation,
		Attachments: attachments,
	}, nil
}

func participantToWire(p *entity.Participant) *Participant {
	return &Participant{
		Id:         p.ID,
		Identifier: p.Identifier,
		Metadata:   p.Metadata,
		CreatedAt:  p.CreatedAt,
	}
}

func scoreToWire(s *entity.Score) *Score {
	return &Score{
		Id:                      s.ID,
		Name:                    s.Name,
		Type:                    string(s.Type),
		Value:                   s.Value,
		Comment:                 s.Comment,
		Tags:                    s.Tags,
		StepId:                  s.StepID,
		GenerationId:            s.GenerationID,
		DatasetExperimentItemId: s.DatasetExperimentItemID,
	}
}

func deserializeGeneration(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var generation map[string]any
	if err := json.Unmarshal(raw, &generation); err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize generation payload")
	}
	return generation, nil
}

func (m *Mapper) deserializeAttachments(ctx context.Context, s *entity.Step) ([]*Attachment, error) {
	if len(s.Attachments) == 0 {
		return nil, nil
	}

	var attachments []*Attachment
	if err := json.Unmarshal(s.Attachments, &attachments); err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize attachments payload")
	}

	for _, attachment := range attachments {
		attachment.ThreadId = s.ThreadID
		attachment.StepId = s.ID

		if attachment.ObjectKey == "" || attachment.Url != "" {
			continue
		}
		url, err := m.presigner.PresignGetObject(ctx, attachment.ObjectKey)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve attachment url for %q", attachment.ObjectKey)
		}
		attachment.Url = url
	}

	return attachments, nil
}
