package hl7

import "testing"

func TestMessage_ConvenienceAccessors(t *testing.T) {
	msg, err := NewMessage("ADT_A01", WithRegistry(testRegistry()))
	failOnErr(t, err)

	msh, err := msg.MSH()
	failOnErr(t, err)
	failOnErr(t, msh.Set("MSH_3", "LAB^1.2.3.4^ISO"))
	failOnErr(t, msh.Set("MSH_9", "ADT^A01"))
	failOnErr(t, msh.Set("MSH_11", "P"))
	failOnErr(t, msh.Set("MSH_12", "2.3"))

	app, err := msg.SendingApplication()
	failOnErr(t, err)
	assertEqual(t, app, "LAB")

	mt, err := msg.MessageType()
	failOnErr(t, err)
	assertEqual(t, mt, "ADT^A01")

	proc, err := msg.ProcessingID()
	failOnErr(t, err)
	assertEqual(t, proc, "P")

	id, err := msg.GenerateMessageControlID()
	failOnErr(t, err)
	if id == "" {
		t.Fatalf("expected a generated control ID")
	}
	got, err := msg.MessageControlID()
	failOnErr(t, err)
	assertEqual(t, got, id)
}
