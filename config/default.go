package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[SourceLedger]
# URL of the payment gateway holding the source ledger wallet
GatewayURL = "http://localhost:8000"

[DestinationChain]
# RPC provider URL of the destination chain
URL = "http://localhost:8545"
# Address of the operator contract emitting the bridge events
OperatorContract = "0x0000000000000000000000000000000000000000"

[Estimator]
# Subtracted from the source timestamp before extrapolating. Covers the
# operator latency plus the clock skew between the two ledgers.
SafetyMargin = "2m"
# How many blocks behind head to sample when measuring the block time
SampleSpan = 1000
# Used when the chain is too short to measure an average block time
FallbackBlockTime = "5s"

[Poller]
PollInterval = "5s"
BlockChunkSize = 1000
RetryAfterErrorPeriod = "1s"
MaxRetryAttemptsAfterError = 5

[Bridge]
# Polling budget per bridge operation, matching the operator's bridging SLA
Timeout = "360s"

[Store]
DBPath = "lumelink.sqlite"
`
