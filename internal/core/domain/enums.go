package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of an operation. It is transported as the
// numeric code the counterparty protocol uses.
type Status int

const (
	StatusCreated   Status = 10
	StatusInProcess Status = 20
	StatusError     Status = 30
	StatusCanceled  Status = 40
	StatusSuccess   Status = 50
)

var statusNames = map[Status]string{
	StatusCreated:   "CREATED",
	StatusInProcess: "IN_PROCESS",
	StatusError:     "ERROR",
	StatusCanceled:  "CANCELED",
	StatusSuccess:   "SUCCESS",
}

// StatusFromCode resolves a wire code into a Status. Unknown codes fail closed.
func StatusFromCode(code int) (Status, error) {
	s := Status(code)
	if _, ok := statusNames[s]; !ok {
		return 0, fmt.Errorf("unknown status code: %d", code)
	}
	return s, nil
}

func (s Status) Code() int      { return int(s) }
func (s Status) String() string { return statusNames[s] }

// IsFinal reports whether no further transition is expected from s.
func (s Status) IsFinal() bool {
	return s == StatusError || s == StatusCanceled || s == StatusSuccess
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	v, err := StatusFromCode(code)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// OperationType tags which lifecycle step an operation record belongs to.
type OperationType int

const (
	OperationCheck   OperationType = 10
	OperationCreate  OperationType = 20
	OperationExecute OperationType = 30
	OperationUpdate  OperationType = 40
)

var operationTypeNames = map[OperationType]string{
	OperationCheck:   "CHECK",
	OperationCreate:  "CREATE",
	OperationExecute: "EXECUTE",
	OperationUpdate:  "UPDATE",
}

// OperationTypeFromCode resolves a numeric code. Unknown codes fail closed.
func OperationTypeFromCode(code int) (OperationType, error) {
	t := OperationType(code)
	if _, ok := operationTypeNames[t]; !ok {
		return 0, fmt.Errorf("unknown operation type code: %d", code)
	}
	return t, nil
}

func (t OperationType) Code() int      { return int(t) }
func (t OperationType) String() string { return operationTypeNames[t] }

// TransactionType classifies the money movement per the QR payment scheme.
type TransactionType int

const (
	TransactionC2C         TransactionType = 10
	TransactionC2B         TransactionType = 20
	TransactionC2G         TransactionType = 30
	TransactionB2C         TransactionType = 40
	TransactionB2B         TransactionType = 50
	TransactionBankReserve TransactionType = 60
	TransactionB2G         TransactionType = 70
)

var transactionTypeNames = map[TransactionType]string{
	TransactionC2C:         "C2C",
	TransactionC2B:         "C2B",
	TransactionC2G:         "C2G",
	TransactionB2C:         "B2C",
	TransactionB2B:         "B2B",
	TransactionBankReserve: "BANK_RESERVE",
	TransactionB2G:         "B2G",
}

// TransactionTypeFromCode resolves a wire code. Unknown codes fail closed.
func TransactionTypeFromCode(code int) (TransactionType, error) {
	t := TransactionType(code)
	if _, ok := transactionTypeNames[t]; !ok {
		return 0, fmt.Errorf("unknown transaction type code: %d", code)
	}
	return t, nil
}

func (t TransactionType) Code() int      { return int(t) }
func (t TransactionType) String() string { return transactionTypeNames[t] }

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(t))
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	v, err := TransactionTypeFromCode(code)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// CustomerType distinguishes natural persons from legal entities. The wire
// representation is the string code ("1" or "2").
type CustomerType string

const (
	CustomerIndividual CustomerType = "1"
	CustomerCorporate  CustomerType = "2"
)

// CustomerTypeFromCode resolves a wire code. Unknown codes fail closed.
func CustomerTypeFromCode(code string) (CustomerType, error) {
	switch CustomerType(code) {
	case CustomerIndividual, CustomerCorporate:
		return CustomerType(code), nil
	}
	return "", fmt.Errorf("unknown customer type code: %q", code)
}

func (c CustomerType) Code() string { return string(c) }

// TransferDirection says which way money moves relative to this gateway.
type TransferDirection string

const (
	DirectionIn  TransferDirection = "IN"
	DirectionOut TransferDirection = "OUT"
	DirectionOwn TransferDirection = "OWN"
)
