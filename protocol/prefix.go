package protocol

const (
	// Ledger metadata
	PrefixMeta        = "meta:"
	PrefixMetaNetwork = "meta:network" // network the ledger was created for

	// Payment related prefixes
	PrefixPayment       = "pay:"    // pay:TxHash#Index = Payment record
	PrefixPaymentStatus = "st:pay:" // st:pay:Status:TxHash#Index = empty marker

	// Drop related prefixes
	PrefixDropCursor = "drop:cur:" // drop:cur:DropName = position in the metadata set

	// Token related prefixes
	PrefixToken = "tok:" // tok:PolicyID:AssetNameHex = mint tx hash
)
