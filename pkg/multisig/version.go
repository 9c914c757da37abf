package multisig

const Version = "0.1.0"
