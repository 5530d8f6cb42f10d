package obs

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
)

// obs-websocket protocol v5 opcodes.
// See github.com/obsproject/obs-websocket, docs/generated/protocol.md.
const (
	opHello           = 0
	opIdentify        = 1
	opIdentified      = 2
	opRequest         = 6
	opRequestResponse = 7
)

// rpcVersion is the obs-websocket RPC version this client speaks.
const rpcVersion = 1

// Request types used by the controller.
const (
	reqGetVersion      = "GetVersion"
	reqStartStream     = "StartStream"
	reqStopStream      = "StopStream"
	reqStartRecord     = "StartRecord"
	reqStopRecord      = "StopRecord"
	reqGetStreamStatus = "GetStreamStatus"
	reqGetRecordStatus = "GetRecordStatus"
)

// envelope is the outer obs-websocket message frame.
type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

// helloData is the payload of the server's Hello (op 0).
type helloData struct {
	ObsWebSocketVersion string `json:"obsWebSocketVersion"`
	RPCVersion          int    `json:"rpcVersion"`
	Authentication      *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

// identifyData is the payload of the client's Identify (op 1).
type identifyData struct {
	RPCVersion int `json:"rpcVersion"`
	// Authentication is omitted when the server requires none.
	Authentication string `json:"authentication,omitempty"`
	// EventSubscriptions is zero: the controller polls, it does not
	// consume the event stream.
	EventSubscriptions int `json:"eventSubscriptions"`
}

// requestData is the payload of a request (op 6).
type requestData struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

// responseData is the payload of a request response (op 7).
type responseData struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData"`
}

// outputStatus is the shared shape of GetStreamStatus/GetRecordStatus
// responses; only the active flag is consumed.
type outputStatus struct {
	OutputActive bool `json:"outputActive"`
}

// authResponse computes the obs-websocket authentication string:
//
//	base64(sha256(base64(sha256(password + salt)) + challenge))
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])

	proof := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(proof[:])
}
