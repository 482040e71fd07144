package dynamo

// DynamoDB attribute names of the activation_codes table.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldCode     = "code"
	fieldState    = "state"
	fieldDeviceID = "device_id"
	fieldUsedAt   = "used_at"
)
