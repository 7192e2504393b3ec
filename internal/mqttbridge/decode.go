package mqttbridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/nao-lola/internal/lola"
)

// DecodeUpdate parses the JSON body of an effector message for group g.
// Unknown fields are rejected so a renamed field is not silently ignored.
func DecodeUpdate(g lola.Group, payload []byte) (lola.ChannelUpdate, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var u lola.ChannelUpdate
	var err error
	switch g {
	case lola.JointPositions:
		u, err = decodeAs[lola.JointPositionsUpdate](dec)
	case lola.JointStiffnesses:
		u, err = decodeAs[lola.JointStiffnessesUpdate](dec)
	case lola.ChestLed:
		u, err = decodeAs[lola.ChestLedUpdate](dec)
	case lola.LeftEarLeds:
		u, err = decodeAs[lola.LeftEarLedsUpdate](dec)
	case lola.RightEarLeds:
		u, err = decodeAs[lola.RightEarLedsUpdate](dec)
	case lola.LeftEyeLeds:
		u, err = decodeAs[lola.LeftEyeLedsUpdate](dec)
	case lola.RightEyeLeds:
		u, err = decodeAs[lola.RightEyeLedsUpdate](dec)
	case lola.LeftFootLed:
		u, err = decodeAs[lola.LeftFootLedUpdate](dec)
	case lola.RightFootLed:
		u, err = decodeAs[lola.RightFootLedUpdate](dec)
	case lola.HeadLeds:
		u, err = decodeAs[lola.HeadLedsUpdate](dec)
	case lola.SonarUsage:
		u, err = decodeAs[lola.SonarUsageUpdate](dec)
	default:
		return nil, fmt.Errorf("%w: group %d", lola.ErrUnknownUpdate, int(g))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", g, err)
	}
	return u, nil
}

func decodeAs[T lola.ChannelUpdate](dec *json.Decoder) (lola.ChannelUpdate, error) {
	var v T
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
