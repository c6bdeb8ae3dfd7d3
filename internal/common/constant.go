package common

// ProtocolVersion is announced in the greeting line sent to every new connection.
const ProtocolVersion = "passvault/1"

// ListTerminator closes the multi-line LIST-PASS response block.
const ListTerminator = "END"
