package module

import dom "doorman/internal/services/trust/domain"

// Ports holds the ports exposed by the trust module
type Ports struct {
	Store dom.StorePort
}
