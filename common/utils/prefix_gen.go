package utils

import (
	prt "github.com/thecardroom/tcr/protocol"
)

// "pay:"
func GetPaymentKey(ref prt.UTxORef) []byte {
	return []byte(prt.PrefixPayment + ref.String())
}

// "st:pay:"
// [Usage Pattern 1] st:pay:Status:TxHash#Index = marker
// [Usage Pattern 2] st:pay:Status: = iterate one status
func GetPaymentStatusKey(status string, ref *prt.UTxORef) []byte {
	if ref != nil {
		return []byte(prt.PrefixPaymentStatus + status + ":" + ref.String())
	}
	return []byte(prt.PrefixPaymentStatus + status + ":")
}

// "drop:cur:"
func GetDropCursorKey(drop string) []byte {
	return []byte(prt.PrefixDropCursor + drop)
}

// "tok:"
func GetTokenKey(policyID, name string) []byte {
	return []byte(prt.PrefixToken + policyID + ":" + AssetNameToHex(name))
}
