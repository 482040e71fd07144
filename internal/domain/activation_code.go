package domain

import "time"

type CodeState string

const (
	CodeUnused CodeState = "unused"
	CodeUsed   CodeState = "used"
)

// ActivationCode is a single-use license code. Once State is CodeUsed,
// DeviceID is set and never changes.
type ActivationCode struct {
	Code      string     `json:"code" dynamodbav:"code"`
	State     CodeState  `json:"state" dynamodbav:"state"`
	DeviceID  string     `json:"device_id,omitempty" dynamodbav:"device_id,omitempty"`
	BatchID   string     `json:"batch_id" dynamodbav:"batch_id"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UsedAt    *time.Time `json:"used,omitempty" dynamodbav:"used_at,omitempty"`
}

func (c *ActivationCode) IsUsed() bool { return c.State == CodeUsed }
