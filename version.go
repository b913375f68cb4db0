package dynamo

// Version is the release of the engine and its document writer.
const Version = "0.1.0"
